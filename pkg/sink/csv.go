package sink

import (
	"encoding/csv"
	"os"
	"time"

	"shopfinder/pkg/models"
	"shopfinder/pkg/utils"
)

// CSVSink writes one row per entity with a fixed header.
type CSVSink struct {
	Path string
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Write(entities []models.CanonicalEntity, _ models.RunSummary) error {
	f, err := os.Create(s.Path)
	if err != nil {
		return utils.WrapErrorf(utils.ErrSinkWrite, "creating %s: %v", s.Path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"key", "url", "source", "first_seen"}); err != nil {
		return utils.WrapErrorf(utils.ErrSinkWrite, "writing header to %s: %v", s.Path, err)
	}
	for _, e := range entities {
		row := []string{e.Key, e.URL, e.SourceTag, e.FirstSeen.UTC().Format(time.RFC3339)}
		if err := w.Write(row); err != nil {
			return utils.WrapErrorf(utils.ErrSinkWrite, "writing row to %s: %v", s.Path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return utils.WrapErrorf(utils.ErrSinkWrite, "flushing %s: %v", s.Path, err)
	}
	return f.Sync()
}
