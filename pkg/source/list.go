package source

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"shopfinder/pkg/config"
	"shopfinder/pkg/extract"
	"shopfinder/pkg/models"

	"github.com/sirupsen/logrus"
)

// ListProvider seeds the frontier from a local file of URLs, one per line.
// Blank lines and #-comments are skipped. No pagination.
type ListProvider struct {
	name string
	file string
	log  *logrus.Entry
}

func NewListProvider(name string, cfg config.SourceConfig, log *logrus.Entry) *ListProvider {
	return &ListProvider{name: name, file: cfg.File, log: log}
}

func (p *ListProvider) Name() string { return p.name }
func (p *ListProvider) Kind() string { return "list" }

func (p *ListProvider) Seeds() ([]*models.FrontierItem, error) {
	f, err := os.Open(p.file)
	if err != nil {
		return nil, fmt.Errorf("list source %q: %w", p.name, err)
	}
	defer f.Close()

	var items []*models.FrontierItem
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "http://") && !strings.HasPrefix(line, "https://") {
			line = "https://" + line
		}
		items = append(items, &models.FrontierItem{
			Target:    line,
			SourceTag: Tag(p.name, "custom"),
			BornAt:    time.Now(),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("list source %q: reading %s: %w", p.name, p.file, err)
	}
	p.log.WithField("count", len(items)).Info("Loaded URL list")
	return items, nil
}

func (p *ListProvider) NextItems(_ *models.FrontierItem, _ *extract.Document) []*models.FrontierItem {
	return nil
}
