package source

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"shopfinder/pkg/config"
	"shopfinder/pkg/extract"
	"shopfinder/pkg/models"

	"github.com/sirupsen/logrus"
)

// SearchProvider walks an offset-paginated web search. The URL template
// carries {query} and {offset} placeholders; each processed result page
// schedules the next offset until the per-query page limit is reached or
// the frontier retires the query for emptiness.
type SearchProvider struct {
	name     string
	template string
	queries  []string
	pageStep int
	maxPages int
	log      *logrus.Entry
}

func NewSearchProvider(name string, cfg config.SourceConfig, maxPages int, log *logrus.Entry) *SearchProvider {
	return &SearchProvider{
		name:     name,
		template: cfg.URLTemplate,
		queries:  cfg.Queries,
		pageStep: cfg.PageStep,
		maxPages: maxPages,
		log:      log,
	}
}

func (p *SearchProvider) Name() string { return p.name }
func (p *SearchProvider) Kind() string { return "search" }

func (p *SearchProvider) pageURL(query string, page int) string {
	u := strings.ReplaceAll(p.template, "{query}", url.QueryEscape(query))
	return strings.ReplaceAll(u, "{offset}", strconv.Itoa(page*p.pageStep))
}

func (p *SearchProvider) Seeds() ([]*models.FrontierItem, error) {
	items := make([]*models.FrontierItem, 0, len(p.queries))
	for _, q := range p.queries {
		items = append(items, &models.FrontierItem{
			Target:    p.pageURL(q, 0),
			SourceTag: Tag(p.name, q),
			BornAt:    time.Now(),
		})
	}
	return items, nil
}

// NextItems schedules the following result page for the item's query. The
// query string is recovered from the source tag.
func (p *SearchProvider) NextItems(item *models.FrontierItem, _ *extract.Document) []*models.FrontierItem {
	if item.PageIndex+1 >= p.maxPages {
		p.log.WithFields(logrus.Fields{"tag": item.SourceTag, "pages": item.PageIndex + 1}).
			Debug("Query reached page limit")
		return nil
	}
	query := strings.TrimPrefix(item.SourceTag, p.name+"/")
	return []*models.FrontierItem{{
		Target:    p.pageURL(query, item.PageIndex+1),
		PageIndex: item.PageIndex + 1,
		SourceTag: item.SourceTag,
		BornAt:    time.Now(),
	}}
}
