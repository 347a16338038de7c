package sink

import (
	"encoding/json"
	"os"
	"time"

	"shopfinder/pkg/models"
	"shopfinder/pkg/utils"
)

// JSONSink writes the entity set as a single JSON document with run
// metadata in the envelope.
type JSONSink struct {
	Path string
}

type jsonEnvelope struct {
	GeneratedAt time.Time                `json:"generated_at"`
	RunID       string                   `json:"run_id"`
	Total       int                      `json:"total"`
	Entities    []models.CanonicalEntity `json:"entities"`
}

func (s *JSONSink) Name() string { return "json" }

func (s *JSONSink) Write(entities []models.CanonicalEntity, summary models.RunSummary) error {
	f, err := os.Create(s.Path)
	if err != nil {
		return utils.WrapErrorf(utils.ErrSinkWrite, "creating %s: %v", s.Path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	env := jsonEnvelope{
		GeneratedAt: time.Now().UTC(),
		RunID:       summary.RunID,
		Total:       len(entities),
		Entities:    entities,
	}
	if err := enc.Encode(env); err != nil {
		return utils.WrapErrorf(utils.ErrSinkWrite, "encoding %s: %v", s.Path, err)
	}
	return f.Sync()
}
