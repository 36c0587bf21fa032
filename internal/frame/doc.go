// Package frame drives the per-frame pipeline: slice a frame out of the
// series, apply the optional spatial cut, normalize the scalar field,
// partition particles into color classes and hand each class to a
// [render.Renderer] as a colored point group.
//
// Frames are processed strictly one after another. The renderer owns a
// single mutable scene, so every frame ends with a Reset and the scene
// holds exactly the current frame's groups when it is captured.
//
// # Color assignment
//
// The j-th class of a frame, in ascending bin order, is drawn with color j
// of the table, regardless of which bin it came from. Config.ColorByBin
// switches to coloring by the class's bin index.
package frame
