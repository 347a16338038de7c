package extract

import (
	"bytes"
	"sync"

	"shopfinder/pkg/utils"

	"github.com/PuerkitoBio/goquery"
)

// Document wraps one fetched page for the extraction strategies. The HTML
// parse is lazy and shared: strategies that only need the raw bytes never
// pay for it.
type Document struct {
	SourceURL string
	Body      []byte

	once     sync.Once
	doc      *goquery.Document
	parseErr error
}

// NewDocument wraps a fetched body.
func NewDocument(sourceURL string, body []byte) *Document {
	return &Document{SourceURL: sourceURL, Body: body}
}

// HTML returns the parsed goquery document, parsing on first use.
func (d *Document) HTML() (*goquery.Document, error) {
	d.once.Do(func() {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(d.Body))
		if err != nil {
			d.parseErr = utils.WrapErrorf(utils.ErrParsing, "HTML parse of %s: %v", d.SourceURL, err)
			return
		}
		d.doc = doc
	})
	return d.doc, d.parseErr
}
