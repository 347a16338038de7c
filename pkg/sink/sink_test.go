package sink

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfinder/pkg/models"
)

func sampleData() ([]models.CanonicalEntity, models.RunSummary) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entities := []models.CanonicalEntity{
		{Key: "alpha.myshopify.com", URL: "https://alpha.myshopify.com", SourceTag: "websearch/shoes", FirstSeen: now},
		{Key: "beta.myshopify.com", URL: "https://beta.myshopify.com", SourceTag: "directory/apparel", FirstSeen: now},
	}
	summary := models.RunSummary{
		RunID:        "test-run",
		StartedAt:    now,
		FinishedAt:   now.Add(5 * time.Minute),
		Outcome:      "exhausted",
		Processed:    10,
		Succeeded:    8,
		Blocked:      1,
		Failed:       1,
		RequestSlots: 14,
		Entities:     2,
	}
	return entities, summary
}

func TestJSONSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	entities, summary := sampleData()

	require.NoError(t, (&JSONSink{Path: path}).Write(entities, summary))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var env struct {
		RunID    string                   `json:"run_id"`
		Total    int                      `json:"total"`
		Entities []models.CanonicalEntity `json:"entities"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "test-run", env.RunID)
	assert.Equal(t, 2, env.Total)
	require.Len(t, env.Entities, 2)
	assert.Equal(t, "alpha.myshopify.com", env.Entities[0].Key)
}

func TestCSVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	entities, summary := sampleData()

	require.NoError(t, (&CSVSink{Path: path}).Write(entities, summary))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"key", "url", "source", "first_seen"}, rows[0])
	assert.Equal(t, "alpha.myshopify.com", rows[1][0])
	assert.Equal(t, "https://beta.myshopify.com", rows[2][1])
	assert.Equal(t, "2025-06-01T12:00:00Z", rows[1][3])
}

func TestReportSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	entities, summary := sampleData()

	require.NoError(t, (&ReportSink{Path: path}).Write(entities, summary))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	report := string(data)

	assert.True(t, strings.Contains(report, "# Discovery Run Report"))
	assert.True(t, strings.Contains(report, "test-run"))
	assert.True(t, strings.Contains(report, "`alpha.myshopify.com`"))
	assert.True(t, strings.Contains(report, "websearch"), "per-source breakdown present")
	assert.True(t, strings.Contains(report, "exhausted"))
}

func TestReportSink_SampleTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	_, summary := sampleData()

	var entities []models.CanonicalEntity
	for i := 0; i < 5; i++ {
		key := string(rune('a'+i)) + "shop.myshopify.com"
		entities = append(entities, models.CanonicalEntity{Key: key, URL: "https://" + key, SourceTag: "t/q", FirstSeen: time.Now()})
	}

	require.NoError(t, (&ReportSink{Path: path, SampleSize: 2}).Write(entities, summary))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	report := string(data)

	assert.True(t, strings.Contains(report, "`ashop.myshopify.com`"))
	assert.False(t, strings.Contains(report, "`cshop.myshopify.com`"))
	assert.True(t, strings.Contains(report, "and 3 more"))
}

func TestJSONSink_UnwritablePath(t *testing.T) {
	entities, summary := sampleData()
	err := (&JSONSink{Path: "/nonexistent-dir/out.json"}).Write(entities, summary)
	assert.Error(t, err)
}
