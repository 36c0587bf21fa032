package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/givis/internal/frame"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string    `json:"id"`
	Variable   string    `json:"variable"`
	DataDir    string    `json:"data_dir"`
	OutputDir  string    `json:"output_dir"`
	Started    time.Time `json:"started"`
	Finished   time.Time `json:"finished"`
	Preset     string    `json:"preset,omitempty"`
	TMin       float64   `json:"t_min"`
	TMax       float64   `json:"t_max"`
	UnitScalar float64   `json:"unit_scalar"`
	Bins       int       `json:"bins"`
	Cut        bool      `json:"cut"`
	ColorByBin bool      `json:"color_by_bin,omitempty"`
	Colormap   string    `json:"colormap"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Frames     int       `json:"frames"`
}

// FrameRecord is one row of frames.csv.
type FrameRecord struct {
	Frame     int
	Particles int
	Classes   int
	Path      string
}

var csvHeader = []string{"frame", "particles", "classes", "path"}

// Save writes metadata.json and frames.csv under a fresh run directory
// and returns the run ID. A failed save removes the directory.
func (s *Store) Save(meta RunMetadata, result *frame.Result) (string, error) {
	runID, runDir, err := s.newRunDir(meta.Variable, meta.Started)
	if err != nil {
		return "", err
	}
	meta.ID = runID
	if result != nil {
		meta.Frames = len(result.Frames)
	}

	if err := writeMetadata(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	if err := writeFrames(filepath.Join(runDir, "frames.csv"), result); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	return runID, nil
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeFrames(path string, result *frame.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return err
	}
	if result != nil {
		for _, st := range result.Frames {
			row := []string{
				strconv.Itoa(st.Index),
				strconv.Itoa(st.Particles),
				strconv.Itoa(st.Groups),
				st.Path,
			}
			if err := w.Write(row); err != nil {
				f.Close()
				return err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *Store) newRunDir(variable string, started time.Time) (string, string, error) {
	if variable == "" {
		variable = "run"
	}
	if started.IsZero() {
		started = time.Now()
	}
	base := fmt.Sprintf("%s_%d", variable, started.Unix())
	runID := base
	for n := 1; ; n++ {
		runDir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if !os.IsExist(err) {
			if os.IsNotExist(err) {
				if err := s.Init(); err != nil {
					return "", "", err
				}
				continue
			}
			return "", "", err
		}
		runID = fmt.Sprintf("%s_%d", base, n)
	}
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Started.Before(runs[j].Started) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadFrames(runID string) ([]FrameRecord, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "frames.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(csvHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	if len(records) < 2 {
		return []FrameRecord{}, nil
	}

	frames := make([]FrameRecord, 0, len(records)-1)
	for _, record := range records[1:] {
		var rec FrameRecord
		var perr error
		if rec.Frame, perr = strconv.Atoi(record[0]); perr != nil {
			continue
		}
		if rec.Particles, perr = strconv.Atoi(record[1]); perr != nil {
			continue
		}
		if rec.Classes, perr = strconv.Atoi(record[2]); perr != nil {
			continue
		}
		rec.Path = record[3]
		frames = append(frames, rec)
	}
	return frames, nil
}
