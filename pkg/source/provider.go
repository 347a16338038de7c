package source

import (
	"fmt"

	"shopfinder/pkg/config"
	"shopfinder/pkg/extract"
	"shopfinder/pkg/models"

	"github.com/sirupsen/logrus"
)

// Provider drives one discovery source: it seeds the frontier and, given a
// processed page, derives the follow-up items (next result page, next
// category page). Providers are stateless beyond their configuration; all
// traversal state lives in the frontier items themselves.
type Provider interface {
	Name() string
	Kind() string
	Seeds() ([]*models.FrontierItem, error)
	NextItems(item *models.FrontierItem, doc *extract.Document) []*models.FrontierItem
}

// Tag builds the source tag identifying one traversal within a provider.
func Tag(provider, query string) string {
	return provider + "/" + query
}

// Build instantiates all enabled providers from configuration.
func Build(cfg *config.AppConfig, log *logrus.Logger) ([]Provider, error) {
	var providers []Provider
	for name, src := range cfg.Sources {
		if !src.Enabled {
			continue
		}
		entry := log.WithFields(logrus.Fields{"source": name, "kind": src.Kind})
		switch src.Kind {
		case "search":
			providers = append(providers, NewSearchProvider(name, src, cfg.Limits.MaxPagesPerQuery, entry))
		case "directory":
			providers = append(providers, NewDirectoryProvider(name, src, cfg.Limits.MaxPagesPerQuery, cfg.Limits.MaxDepth, entry))
		case "ctlog":
			providers = append(providers, NewCTLogProvider(name, src, cfg.Fingerprint.Suffix, entry))
		case "list":
			providers = append(providers, NewListProvider(name, src, entry))
		default:
			return nil, fmt.Errorf("source %q: unknown kind %q", name, src.Kind)
		}
	}
	return providers, nil
}
