// Package enrich fills the photo and contact columns left open by
// extraction, and owns the image-URL rules and retrying fetcher the
// assembler shares.
package enrich

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/propmerge/internal/config"
	"github.com/propmerge/internal/debug"
	"github.com/propmerge/internal/schema"
)

// Enricher fills Property Photo and Contact Phone fields from outside
// sources. Implementations return a new slice; the input is not modified.
type Enricher interface {
	Enrich(ctx context.Context, rows []schema.PropertyRow) ([]schema.PropertyRow, error)
}

var (
	_ Enricher = NoopEnricher{}
	_ Enricher = (*PageEnricher)(nil)
)

// NoopEnricher leaves rows unchanged. It is the default when page
// enrichment is switched off.
type NoopEnricher struct{}

func (NoopEnricher) Enrich(_ context.Context, rows []schema.PropertyRow) ([]schema.PropertyRow, error) {
	return rows, nil
}

// PageEnricher fetches each row's detail page and pulls the og:image
// photo URL and the first tel: contact link. Every failure degrades to
// leaving that row as it was.
type PageEnricher struct {
	client     *http.Client
	workers    int
	localDebug bool
}

func NewPageEnricher(cfg config.FetchConfig, localDebug bool) *PageEnricher {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &PageEnricher{
		client:     &http.Client{Timeout: timeout},
		workers:    workers,
		localDebug: localDebug,
	}
}

func (e *PageEnricher) Enrich(ctx context.Context, rows []schema.PropertyRow) ([]schema.PropertyRow, error) {
	defer debug.Timing(e.localDebug, "page enrich")()

	out := append([]schema.PropertyRow(nil), rows...)
	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup

	for i := range out {
		link := out[i].WebsiteLink
		if !link.Resolved() || !isHTTP(link.Value()) {
			continue
		}
		if out[i].PropertyPhoto.Resolved() && out[i].ContactPhone.Resolved() {
			continue
		}

		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			photo, phone, err := e.scrape(ctx, url)
			if err != nil {
				debug.Output(e.localDebug, "page enrich skipped %s: %v", url, err)
				return
			}

			// Each goroutine owns exactly one row element.
			if photo != "" && !out[i].PropertyPhoto.Resolved() && IsFetchableImageURL(photo) {
				out[i].PropertyPhoto = schema.Val(photo)
			}
			if phone != "" && !out[i].ContactPhone.Resolved() {
				out[i].ContactPhone = schema.Val(phone)
			}
		}(i, link.Value())
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *PageEnricher) scrape(ctx context.Context, url string) (photo, phone string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", "", err
	}

	photo, _ = doc.Find(`meta[property="og:image"]`).First().Attr("content")
	photo = strings.TrimSpace(photo)

	if href, ok := doc.Find(`a[href^="tel:"]`).First().Attr("href"); ok {
		phone = strings.TrimSpace(strings.TrimPrefix(href, "tel:"))
	}

	return photo, phone, nil
}

func isHTTP(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}
