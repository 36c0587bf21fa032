// Package series opens particle time series stored as NumPy .npy arrays.
//
// Arrays are memory-mapped read-only and never modified, so any number of
// frames may be read concurrently. A [Series] pairs a positions array of
// shape (particles, frames, 3) with a scalar array of shape
// (particles, frames, 1).
//
// Files are located by naming convention: *_pos.npy for positions and
// *_<CODE>.npy for the scalar field, where CODE is T for temperature and P
// for pressure.
package series
