package extract

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfinder/pkg/models"
)

func testExtractor() *Extractor {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewExtractor(".myshopify.com", logrus.NewEntry(log))
}

func origins(matches []models.CandidateMatch) map[models.CandidateOrigin]bool {
	out := make(map[models.CandidateOrigin]bool)
	for _, m := range matches {
		out[m.Origin] = true
	}
	return out
}

func rawTexts(matches []models.CandidateMatch) map[string]bool {
	out := make(map[string]bool)
	for _, m := range matches {
		out[m.RawText] = true
	}
	return out
}

func TestExtract_LinkHrefAndText(t *testing.T) {
	body := `<html><body>
		<a href="https://hrefshop.myshopify.com/products">Some store</a>
		<a href="/local">textshop.myshopify.com</a>
	</body></html>`

	matches := testExtractor().Extract(NewDocument("https://results.test/p1", []byte(body)))

	got := rawTexts(matches)
	assert.True(t, got["hrefshop.myshopify.com"])
	assert.True(t, got["textshop.myshopify.com"])
	o := origins(matches)
	assert.True(t, o[models.OriginLinkHref])
	assert.True(t, o[models.OriginLinkText])
}

func TestExtract_AttributesAndMeta(t *testing.T) {
	body := `<html><head>
		<meta property="og:url" content="https://metashop.myshopify.com/">
	</head><body>
		<img src="https://cdn.example/x.png" data-store="attrshop.myshopify.com">
	</body></html>`

	matches := testExtractor().Extract(NewDocument("https://results.test/p1", []byte(body)))

	got := rawTexts(matches)
	assert.True(t, got["metashop.myshopify.com"])
	assert.True(t, got["attrshop.myshopify.com"])
	o := origins(matches)
	assert.True(t, o[models.OriginMetaTag])
	assert.True(t, o[models.OriginAttribute])
}

func TestExtract_StructuredJSON(t *testing.T) {
	body := `<html><body>
		<script type="application/ld+json">
		{"@type":"Organization","url":"https://jsonshop.myshopify.com","nested":{"list":["deepshop.myshopify.com"]}}
		</script>
	</body></html>`

	matches := testExtractor().Extract(NewDocument("https://results.test/p1", []byte(body)))

	got := rawTexts(matches)
	assert.True(t, got["jsonshop.myshopify.com"])
	assert.True(t, got["deepshop.myshopify.com"])
	assert.True(t, origins(matches)[models.OriginStructured])
}

func TestExtract_PlainTextBody(t *testing.T) {
	// Non-HTML payload, e.g. a CT-log JSON response.
	body := `[{"common_name":"ctshop.myshopify.com"},{"common_name":"other.example.com"}]`

	matches := testExtractor().Extract(NewDocument("https://ct.test/q", []byte(body)))

	require.NotEmpty(t, matches)
	assert.True(t, rawTexts(matches)["ctshop.myshopify.com"])
}

func TestExtract_NoFingerprint(t *testing.T) {
	body := `<html><body><p>Nothing to see here.</p></body></html>`

	matches := testExtractor().Extract(NewDocument("https://results.test/p1", []byte(body)))
	assert.Empty(t, matches)
}

func TestExtract_FallbackOnSuffixOnlyHit(t *testing.T) {
	// The underscore keeps the strict strategies from matching, but the
	// suffix substring is present so the permissive pass runs.
	body := `<html><body><p>ref: _oddshop.myshopify.com</p></body></html>`

	matches := testExtractor().Extract(NewDocument("https://results.test/p1", []byte(body)))

	require.NotEmpty(t, matches, "fallback must recover something when the suffix is present")
	assert.True(t, rawTexts(matches)["_oddshop.myshopify.com"])
}

func TestExtract_FallbackNotUsedWhenStrategiesHit(t *testing.T) {
	// A strict hit plus an underscore-mangled one: the fallback must stay
	// off, so only the strict hit surfaces.
	body := `<html><body><p>goodshop.myshopify.com and _oddshop.myshopify.com</p></body></html>`

	matches := testExtractor().Extract(NewDocument("https://results.test/p1", []byte(body)))

	got := rawTexts(matches)
	assert.True(t, got["goodshop.myshopify.com"])
	assert.False(t, got["_oddshop.myshopify.com"])
}
