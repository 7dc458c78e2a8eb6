package storage

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/san-kum/gravsim/internal/dynamo"
)

type ExportData struct {
	Run       RunMetadata      `json:"run"`
	Snapshots []ExportSnapshot  `json:"snapshots"`
}

type ExportSnapshot struct {
	Step   int          `json:"step"`
	Time   float64      `json:"time"`
	Bodies []ExportBody `json:"bodies"`
}

type ExportBody struct {
	M  float64 `json:"m"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
	FX float64 `json:"fx"`
	FY float64 `json:"fy"`
}

func exportSnapshot(snap dynamo.Snapshot) ExportSnapshot {
	out := ExportSnapshot{Step: snap.Step, Time: snap.Time, Bodies: make([]ExportBody, snap.Len())}
	for i := range snap.R {
		out.Bodies[i] = ExportBody{
			M:  snap.M[i],
			X:  snap.R[i].X,
			Y:  snap.R[i].Y,
			VX: snap.V[i].X,
			VY: snap.V[i].Y,
			FX: snap.F[i].X,
			FY: snap.F[i].Y,
		}
	}
	return out
}

// ExportJSON writes a stored run, metadata and snapshots, as one indented
// JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	snaps, err := s.LoadSnapshots(runID)
	if err != nil {
		return err
	}

	data := ExportData{Run: *meta, Snapshots: make([]ExportSnapshot, len(snaps))}
	for i, snap := range snaps {
		data.Snapshots[i] = exportSnapshot(snap)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("storage: encode export: %w", err)
	}
	return nil
}
