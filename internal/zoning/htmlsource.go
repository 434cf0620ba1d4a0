package zoning

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/propmerge/internal/debug"
)

var _ Source = (*HTMLSource)(nil)

// HTMLSource scrapes an address -> zoning table from a results page,
// fetched over HTTP or read from a saved HTML file. Selectors default to
// a plain two-column table; pages with richer markup configure their own.
// The mapping is keyed by the page's own address strings.
type HTMLSource struct {
	// Location is a http(s) URL or a local file path.
	Location string
	Client   *http.Client

	RowSelector     string
	AddressSelector string
	ZoningSelector  string

	localDebug bool
}

func NewHTMLSource(location string, localDebug bool) *HTMLSource {
	return &HTMLSource{
		Location:   location,
		Client:     &http.Client{Timeout: 30 * time.Second},
		localDebug: localDebug,
	}
}

func (s *HTMLSource) Name() string {
	return "html:" + s.Location
}

func (s *HTMLSource) Lookup(ctx context.Context, _ []string) (map[string]string, error) {
	doc, err := s.document(ctx)
	if err != nil {
		return nil, err
	}

	mapping := make(map[string]string)
	doc.Find(s.rowSelector()).Each(func(_ int, row *goquery.Selection) {
		addr := strings.TrimSpace(row.Find(s.addressSelector()).First().Text())
		zone := strings.TrimSpace(row.Find(s.zoningSelector()).First().Text())
		if addr == "" || zone == "" {
			return
		}
		mapping[addr] = zone
	})

	debug.Output(s.localDebug, "zoning page %s yielded %d entries", s.Location, len(mapping))
	return mapping, nil
}

func (s *HTMLSource) document(ctx context.Context) (*goquery.Document, error) {
	if strings.HasPrefix(s.Location, "http://") || strings.HasPrefix(s.Location, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Location, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request for %s: %w", s.Location, err)
		}
		resp, err := s.client().Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch zoning page: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("zoning page %s returned %s", s.Location, resp.Status)
		}
		doc, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse zoning page: %w", err)
		}
		return doc, nil
	}

	f, err := os.Open(s.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to open zoning page file: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.Location, err)
	}
	return doc, nil
}

func (s *HTMLSource) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

func (s *HTMLSource) rowSelector() string {
	if s.RowSelector != "" {
		return s.RowSelector
	}
	return "table tr"
}

func (s *HTMLSource) addressSelector() string {
	if s.AddressSelector != "" {
		return s.AddressSelector
	}
	return "td:nth-child(1)"
}

func (s *HTMLSource) zoningSelector() string {
	if s.ZoningSelector != "" {
		return s.ZoningSelector
	}
	return "td:nth-child(2)"
}
