package sink

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"shopfinder/pkg/models"
	"shopfinder/pkg/utils"
)

// ReportSink renders a human-readable markdown summary of the run: the
// counters, a per-source breakdown, and a sample of the discovered hosts.
type ReportSink struct {
	Path       string
	SampleSize int // hosts listed in the report, 0 = default
}

const defaultSampleSize = 50

func (s *ReportSink) Name() string { return "report" }

func (s *ReportSink) Write(entities []models.CanonicalEntity, summary models.RunSummary) error {
	f, err := os.Create(s.Path)
	if err != nil {
		return utils.WrapErrorf(utils.ErrSinkWrite, "creating %s: %v", s.Path, err)
	}
	defer f.Close()

	md := markdown.NewMarkdown(f)

	md.H1("Discovery Run Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + summary.RunID + "`"},
			{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Finished", summary.FinishedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second).String()},
			{"Outcome", summary.Outcome},
		},
	})
	md.PlainText("")

	md.H2("Counters")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Pages processed", strconv.FormatInt(summary.Processed, 10)},
			{"Fetches succeeded", strconv.FormatInt(summary.Succeeded, 10)},
			{"Blocked (403)", strconv.FormatInt(summary.Blocked, 10)},
			{"Failed", strconv.FormatInt(summary.Failed, 10)},
			{"Robots skipped", strconv.FormatInt(summary.RobotsSkipped, 10)},
			{"Network attempts", strconv.FormatInt(summary.RequestSlots, 10)},
			{"**Entities discovered**", "**" + strconv.Itoa(summary.Entities) + "**"},
		},
	})
	md.PlainText("")

	s.writeSourceBreakdown(md, entities)
	s.writeSample(md, entities)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*%d hosts total; full set in the JSON and CSV outputs.*", len(entities))

	if err := md.Build(); err != nil {
		return utils.WrapErrorf(utils.ErrSinkWrite, "rendering %s: %v", s.Path, err)
	}
	return f.Sync()
}

func (s *ReportSink) writeSourceBreakdown(md *markdown.Markdown, entities []models.CanonicalEntity) {
	md.H2("Discoveries by Source")
	md.PlainText("")
	if len(entities) == 0 {
		md.PlainText("No entities discovered.")
		md.PlainText("")
		return
	}

	counts := make(map[string]int)
	for _, e := range entities {
		provider := e.SourceTag
		if i := strings.IndexByte(provider, '/'); i >= 0 {
			provider = provider[:i]
		}
		counts[provider]++
	}
	providers := make([]string, 0, len(counts))
	for p := range counts {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	rows := make([][]string, 0, len(providers))
	for _, p := range providers {
		rows = append(rows, []string{p, strconv.Itoa(counts[p])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Source", "Entities"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (s *ReportSink) writeSample(md *markdown.Markdown, entities []models.CanonicalEntity) {
	md.H2("Discovered Hosts")
	md.PlainText("")
	if len(entities) == 0 {
		md.PlainText("None.")
		md.PlainText("")
		return
	}

	limit := s.SampleSize
	if limit <= 0 {
		limit = defaultSampleSize
	}
	if limit > len(entities) {
		limit = len(entities)
	}
	hosts := make([]string, 0, limit)
	for _, e := range entities[:limit] {
		hosts = append(hosts, "`"+e.Key+"`")
	}
	md.BulletList(hosts...)
	md.PlainText("")
	if limit < len(entities) {
		md.PlainTextf("... and %d more.", len(entities)-limit)
		md.PlainText("")
	}
}
