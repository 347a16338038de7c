package extract

import (
	"regexp"
	"strings"

	"shopfinder/pkg/models"

	"github.com/sirupsen/logrus"
)

// Extractor runs every strategy over a document and merges their hits. When
// all strategies come back empty but the fingerprint substring is present in
// the body, a deliberately permissive pattern takes one last pass; this
// recovers obfuscated or oddly-encoded occurrences at the cost of noisier
// raw text, which the canonicalizer then filters.
type Extractor struct {
	strategies []Strategy
	suffix     string
	fallbackRe *regexp.Regexp
	log        *logrus.Entry
}

// NewExtractor assembles the default strategy chain for a suffix.
func NewExtractor(suffix string, log *logrus.Entry) *Extractor {
	return &Extractor{
		strategies: []Strategy{
			NewBodyPatternStrategy(suffix),
			NewLinkStrategy(suffix),
			NewAttributeStrategy(suffix),
			NewStructuredStrategy(suffix),
		},
		suffix:     strings.ToLower(suffix),
		fallbackRe: regexp.MustCompile(`(?i)[a-z0-9_-]+` + regexp.QuoteMeta(suffix)),
		log:        log,
	}
}

// Extract returns all candidate matches found in the document.
func (e *Extractor) Extract(doc *Document) []models.CandidateMatch {
	var all []models.CandidateMatch
	for _, s := range e.strategies {
		hits := s.Extract(doc)
		if len(hits) > 0 {
			e.log.WithFields(logrus.Fields{"strategy": s.Name(), "hits": len(hits), "url": doc.SourceURL}).
				Debug("Extraction strategy matched")
		}
		all = append(all, hits...)
	}

	if len(all) == 0 && strings.Contains(strings.ToLower(string(doc.Body)), e.suffix) {
		for _, hit := range e.fallbackRe.FindAllString(string(doc.Body), -1) {
			all = append(all, models.CandidateMatch{
				RawText:   hit,
				Origin:    models.OriginBody,
				SourceURL: doc.SourceURL,
			})
		}
		if len(all) > 0 {
			e.log.WithFields(logrus.Fields{"hits": len(all), "url": doc.SourceURL}).
				Debug("Permissive fallback recovered candidates")
		}
	}
	return all
}
