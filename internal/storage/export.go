package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/sandglass/internal/sim"
)

type ExportData struct {
	Metadata RunMetadata  `json:"metadata"`
	Samples  []sim.Sample `json:"samples"`
}

// Export loads a run and writes it as one JSON document.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	samples, err := s.LoadSamples(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{Metadata: *meta, Samples: samples})
}

func (s *Store) ExportFile(path, runID string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return s.Export(file, runID)
}
