// Package storage keeps a catalog of finished runs: one directory per run
// holding its metadata and the once-a-second status samples, plus a JSON
// sidecar next to every recording.
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

	"github.com/google/uuid"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	Preset    string    `json:"preset,omitempty"`
	Recording string    `json:"recording,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Grid      int       `json:"grid"`
	Dt        float64   `json:"dt"`
	Seed      int64     `json:"seed"`
	Diffusion float64   `json:"diffusion"`
	Viscosity float64   `json:"viscosity"`
	Buoyancy  float64   `json:"buoyancy"`
	Vorticity float64   `json:"vorticity"`

	SimFrames      uint64  `json:"simframes"`
	Frames         uint64  `json:"frames"`
	RecordedFrames int     `json:"recorded_frames"`
	Bytes          int64   `json:"bytes"`
	SimTime        float64 `json:"sim_time"`
	Error          string  `json:"error,omitempty"`
}

// Sample is one status line taken by the stats timer.
type Sample struct {
	Elapsed   time.Duration
	FPS       uint64
	SFPS      uint64
	SimFrames uint64
}

// NewRunID returns a fresh random run id.
func NewRunID() string { return uuid.NewString() }

// Save writes meta and samples under a directory named after meta.ID,
// assigning an id first when meta has none.
func (s *Store) Save(meta *RunMetadata, samples []Sample) error {
	if meta.ID == "" {
		meta.ID = NewRunID()
	}
	if _, err := uuid.Parse(meta.ID); err != nil {
		return fmt.Errorf("run id %q: %w", meta.ID, err)
	}
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return err
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return err
	}
	return writeSamples(filepath.Join(runDir, "stats.csv"), samples)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSamples(path string, samples []Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"elapsed_s", "fps", "sfps", "simframes"}); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{
			strconv.FormatFloat(s.Elapsed.Seconds(), 'f', 3, 64),
			strconv.FormatUint(s.FPS, 10),
			strconv.FormatUint(s.SFPS, 10),
			strconv.FormatUint(s.SimFrames, 10),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the catalog, newest first. Unreadable entries are skipped.
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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	return readMeta(filepath.Join(s.baseDir, runID, "metadata.json"))
}

// LoadSamples reads back the samples saved with a run.
func (s *Store) LoadSamples(runID string) ([]Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "stats.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []Sample{}, nil
	}

	samples := make([]Sample, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) != 4 {
			continue
		}
		secs, err1 := strconv.ParseFloat(record[0], 64)
		fps, err2 := strconv.ParseUint(record[1], 10, 64)
		sfps, err3 := strconv.ParseUint(record[2], 10, 64)
		sim, err4 := strconv.ParseUint(record[3], 10, 64)
		if err := errors.Join(err1, err2, err3, err4); err != nil {
			continue
		}
		samples = append(samples, Sample{
			Elapsed:   time.Duration(secs * float64(time.Second)),
			FPS:       fps,
			SFPS:      sfps,
			SimFrames: sim,
		})
	}
	return samples, nil
}

// SidecarPath is where the metadata of a recording lives.
func SidecarPath(recording string) string { return recording + ".json" }

func WriteSidecar(recording string, meta *RunMetadata) error {
	return writeJSON(SidecarPath(recording), meta)
}

// ReadSidecar loads the metadata written next to a recording.
func ReadSidecar(recording string) (*RunMetadata, error) {
	return readMeta(SidecarPath(recording))
}

func readMeta(path string) (*RunMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &meta, nil
}
