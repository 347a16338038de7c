package sink

import (
	"shopfinder/pkg/models"
)

// Sink writes the final entity set and run summary to some destination.
// Sinks run sequentially after the run finishes; a failing sink does not
// stop the others.
type Sink interface {
	Name() string
	Write(entities []models.CanonicalEntity, summary models.RunSummary) error
}
