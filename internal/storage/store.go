package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/physics"
	"github.com/san-kum/gravsim/internal/sim"
)

const (
	metadataFile  = "metadata.json"
	snapshotsFile = "snapshots.csv"
)

var snapshotHeader = [numColumns]string{"step", "time", "body", "m", "x", "y", "vx", "vy", "fx", "fy"}

const numColumns = 10

// ErrRunNotFound is returned when a run directory has no metadata.
var ErrRunNotFound = errors.New("storage: run not found")

// Store keeps one directory per run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Dir() string { return s.baseDir }

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Timestamp   time.Time          `json:"timestamp"`
	Bodies      int                `json:"bodies"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Theta       float64            `json:"theta"`
	G           float64            `json:"g"`
	Epsilon     float64            `json:"epsilon"`
	Threads     int                `json:"threads"`
	Bounds      string             `json:"bounds"`
	Integrator  string             `json:"integrator"`
	Record      string             `json:"record,omitempty"`
	Steps       int                `json:"steps"`
	WallSeconds float64            `json:"wall_seconds"`
	Stats       physics.Stats      `json:"stats"`
	Escaped     []int              `json:"escaped,omitempty"`
	Metrics     map[string]float64 `json:"metrics"`
}

// NewRunID returns a sortable, collision-free run identifier.
func NewRunID(name string, now time.Time) string {
	if name == "" {
		name = "run"
	}
	return fmt.Sprintf("%s_%s_%s", name, now.UTC().Format("20060102T150405"), uuid.NewString()[:8])
}

// Save writes meta, completed from res, and every kept snapshot of res.
// meta.ID is generated when empty.
func (s *Store) Save(meta RunMetadata, res *sim.Result) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		meta.ID = NewRunID(meta.Name, meta.Timestamp)
	}
	meta.Steps = res.Steps
	meta.WallSeconds = res.WallTime.Seconds()
	meta.Stats = res.Stats
	meta.Escaped = res.Escaped
	meta.Metrics = res.Metrics

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("storage: create run dir: %w", err)
	}

	if err := writeMetadata(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeSnapshots(filepath.Join(runDir, snapshotsFile), res.Snapshots); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("storage: encode metadata: %w", err)
	}
	return f.Close()
}

func writeSnapshots(path string, snaps []dynamo.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(snapshotHeader[:]); err != nil {
		return fmt.Errorf("storage: write header: %w", err)
	}

	row := make([]string, numColumns)
	for _, snap := range snaps {
		step := strconv.Itoa(snap.Step)
		t := formatFloat(snap.Time)
		for i := range snap.R {
			row[0] = step
			row[1] = t
			row[2] = strconv.Itoa(i)
			row[3] = formatFloat(snap.M[i])
			row[4] = formatFloat(snap.R[i].X)
			row[5] = formatFloat(snap.R[i].Y)
			row[6] = formatFloat(snap.V[i].X)
			row[7] = formatFloat(snap.V[i].Y)
			row[8] = formatFloat(snap.F[i].X)
			row[9] = formatFloat(snap.F[i].Y)
			if err := w.Write(row); err != nil {
				return fmt.Errorf("storage: write snapshot: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("storage: flush snapshots: %w", err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns every run with readable metadata, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, fmt.Errorf("storage: %w", err)
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

	slices.SortFunc(runs, func(a, b RunMetadata) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return runs, nil
}

// Latest returns the most recent run.
func (s *Store) Latest() (*RunMetadata, error) {
	runs, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return &runs[len(runs)-1], nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("storage: %w", err)
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: decode metadata %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadSnapshots reads back the snapshots of a run in step order. Masses are
// shared between the returned snapshots.
func (s *Store) LoadSnapshots(runID string) ([]dynamo.Snapshot, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, snapshotsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("storage: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = numColumns
	r.ReuseRecord = true

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []dynamo.Snapshot{}, nil
		}
		return nil, fmt.Errorf("storage: read header: %w", err)
	}

	snaps := make([]dynamo.Snapshot, 0)
	var masses []float64
	line := 1
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("storage: %s: %w", runID, err)
		}
		line++

		var vals [numColumns]float64
		for i, field := range record {
			if vals[i], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("storage: %s line %d column %s: %w", runID, line, snapshotHeader[i], err)
			}
		}

		step, body := int(vals[0]), int(vals[2])
		if len(snaps) == 0 || snaps[len(snaps)-1].Step != step {
			if len(snaps) == 1 {
				masses = snaps[0].M
			}
			snaps = append(snaps, dynamo.Snapshot{Step: step, Time: vals[1], M: masses})
		}
		cur := &snaps[len(snaps)-1]
		if body != len(cur.R) {
			return nil, fmt.Errorf("storage: %s line %d: body %d out of order", runID, line, body)
		}
		if len(snaps) == 1 {
			cur.M = append(cur.M, vals[3])
		}
		cur.R = append(cur.R, r2.Vec{X: vals[4], Y: vals[5]})
		cur.V = append(cur.V, r2.Vec{X: vals[6], Y: vals[7]})
		cur.F = append(cur.F, r2.Vec{X: vals[8], Y: vals[9]})
	}
	return snaps, nil
}
