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

// CTLogProvider queries a certificate-transparency search endpoint (crt.sh
// style) for certificates issued under the fingerprint suffix. The JSON
// response is a single page; the body extraction strategy pulls the hosts
// out of the certificate names.
type CTLogProvider struct {
	name     string
	endpoint string
	suffix   string
	log      *logrus.Entry
}

func NewCTLogProvider(name string, cfg config.SourceConfig, suffix string, log *logrus.Entry) *CTLogProvider {
	return &CTLogProvider{
		name:     name,
		endpoint: cfg.Endpoint,
		suffix:   suffix,
		log:      log,
	}
}

func (p *CTLogProvider) Name() string { return p.name }
func (p *CTLogProvider) Kind() string { return "ctlog" }

// Seeds issues one query for the wildcard pattern under the suffix. If the
// endpoint already embeds a query string it is used verbatim.
func (p *CTLogProvider) Seeds() ([]*models.FrontierItem, error) {
	target := p.endpoint
	if !strings.Contains(target, "?") {
		q := url.Values{}
		q.Set("q", "%"+p.suffix)
		q.Set("output", "json")
		target = target + "?" + q.Encode()
	}
	return []*models.FrontierItem{{
		Target:    target,
		SourceTag: Tag(p.name, "wildcard"),
		BornAt:    time.Now(),
	}}, nil
}

func (p *CTLogProvider) NextItems(_ *models.FrontierItem, _ *extract.Document) []*models.FrontierItem {
	return nil
}
