package source

import (
	"net/url"
	"strings"
	"time"

	"shopfinder/pkg/config"
	"shopfinder/pkg/extract"
	"shopfinder/pkg/models"

	"github.com/sirupsen/logrus"
)

// DirectoryProvider crawls category listing pages on a storefront
// directory. Each category path is its own traversal; pagination follows
// the configured next-page anchor, so the walk adapts to however many pages
// the directory actually serves.
type DirectoryProvider struct {
	name         string
	baseURL      string
	categories   []string
	nextSelector string
	maxPages     int
	maxDepth     int
	log          *logrus.Entry
}

func NewDirectoryProvider(name string, cfg config.SourceConfig, maxPages, maxDepth int, log *logrus.Entry) *DirectoryProvider {
	return &DirectoryProvider{
		name:         name,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		categories:   cfg.CategoryPaths,
		nextSelector: cfg.NextSelector,
		maxPages:     maxPages,
		maxDepth:     maxDepth,
		log:          log,
	}
}

func (p *DirectoryProvider) Name() string { return p.name }
func (p *DirectoryProvider) Kind() string { return "directory" }

func (p *DirectoryProvider) Seeds() ([]*models.FrontierItem, error) {
	items := make([]*models.FrontierItem, 0, len(p.categories))
	for _, cat := range p.categories {
		items = append(items, &models.FrontierItem{
			Target:    p.baseURL + "/" + strings.TrimLeft(cat, "/"),
			SourceTag: Tag(p.name, strings.Trim(cat, "/")),
			BornAt:    time.Now(),
		})
	}
	return items, nil
}

// NextItems follows the next-page anchor on the processed listing page.
func (p *DirectoryProvider) NextItems(item *models.FrontierItem, doc *extract.Document) []*models.FrontierItem {
	if p.nextSelector == "" || doc == nil {
		return nil
	}
	if item.PageIndex+1 >= p.maxPages || item.Depth+1 > p.maxDepth {
		return nil
	}
	parsed, err := doc.HTML()
	if err != nil {
		p.log.WithField("url", item.Target).Debugf("Listing page unparseable: %v", err)
		return nil
	}
	href, ok := parsed.Find(p.nextSelector).First().Attr("href")
	if !ok || href == "" {
		return nil
	}
	next, err := p.resolve(item.Target, href)
	if err != nil {
		p.log.WithFields(logrus.Fields{"url": item.Target, "href": href}).
			Debugf("Next-page link unresolvable: %v", err)
		return nil
	}
	return []*models.FrontierItem{{
		Target:    next,
		Depth:     item.Depth + 1,
		PageIndex: item.PageIndex + 1,
		SourceTag: item.SourceTag,
		BornAt:    time.Now(),
	}}
}

func (p *DirectoryProvider) resolve(base, href string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(ref).String(), nil
}
