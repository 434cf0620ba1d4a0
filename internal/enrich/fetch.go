package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/propmerge/internal/config"
	"github.com/propmerge/internal/debug"
)

// ErrNotImage reports a fetch that returned something other than image
// content; retrying will not change that, so it stops the retry loop.
var ErrNotImage = errors.New("not an image")

// maxImageBytes caps a single download; anything larger is not a listing
// photo.
const maxImageBytes = 20 << 20

// imageIndicators mark URLs that are almost certainly direct images.
var imageIndicators = []string{
	"corelogic.asia",
	"images.",
	".jpg",
	".jpeg",
	".png",
	".gif",
	".webp",
}

// imageExclusions mark map tiles and pin assets that appear in the photo
// column but are useless in the output.
var imageExclusions = []string{
	"maps.googleapis.com",
	"staticmap",
	"target-property-inactive-pin",
	"target-property-pin",
	"marker",
	"pin.png",
	"map-marker",
	"satellite",
}

// IsFetchableImageURL reports whether a photo cell value is worth
// fetching: http(s) only, never blob:/data:, never a map or pin asset.
// URLs without a known image indicator are still accepted; unknown CDNs
// are common and a wrong guess degrades to a text cell anyway.
func IsFetchableImageURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "blob:") || strings.HasPrefix(raw, "data:") {
		return false
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return false
	}

	lower := strings.ToLower(raw)
	for _, excl := range imageExclusions {
		if strings.Contains(lower, excl) {
			return false
		}
	}
	for _, ind := range imageIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return true
}

// RetryPolicy shapes the fetch retry loop: MaxRetries further tries after
// the first, waiting InitialDelay then multiplying.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy retries three times, waiting 1s, 2s, then 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		Multiplier:   2.0,
	}
}

// FetchResult is one download outcome, keyed back to its row.
type FetchResult struct {
	Data []byte
	Ext  string
	Err  error
}

// ImageFetcher downloads listing photos with retries and a bounded worker
// pool. Policy and Client may be adjusted before first use.
type ImageFetcher struct {
	Policy RetryPolicy
	Client *http.Client

	workers    int
	localDebug bool
}

func NewImageFetcher(cfg config.FetchConfig, localDebug bool) *ImageFetcher {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	policy := DefaultRetryPolicy()
	if cfg.Retries > 0 {
		policy.MaxRetries = cfg.Retries
	}

	return &ImageFetcher{
		Policy:     policy,
		Client:     &http.Client{Timeout: timeout},
		workers:    workers,
		localDebug: localDebug,
	}
}

// Fetch downloads one image, retrying transient failures per the policy.
// Non-image content is permanent and fails immediately.
func (f *ImageFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	var lastErr error
	delay := f.Policy.InitialDelay

	for attempt := 0; attempt <= f.Policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * f.Policy.Multiplier)
			case <-ctx.Done():
				return nil, "", ctx.Err()
			}
		}

		data, ext, err := f.fetchOnce(ctx, url)
		if err == nil {
			return data, ext, nil
		}
		lastErr = err
		debug.Output(f.localDebug, "image fetch attempt %d failed for %s: %v", attempt+1, url, err)

		if errors.Is(err, ErrNotImage) {
			break
		}
	}

	return nil, "", lastErr
}

// FetchAll downloads every URL through the worker pool. Each goroutine
// writes only its own key, so results need no post-processing to line up
// with rows.
func (f *ImageFetcher) FetchAll(ctx context.Context, urls map[int]string) map[int]FetchResult {
	defer debug.Timing(f.localDebug, "image fetch")()

	results := make(map[int]FetchResult, len(urls))
	sem := make(chan struct{}, f.workers)

	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			data, ext, err := f.Fetch(ctx, url)

			mu.Lock()
			results[i] = FetchResult{Data: data, Ext: ext, Err: err}
			mu.Unlock()
		}(i, url)
	}
	wg.Wait()

	return results
}

func (f *ImageFetcher) fetchOnce(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read body: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty body")
	}

	ctype := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ctype, "image/") {
		// Header says otherwise or is absent; trust the bytes instead.
		ctype = http.DetectContentType(data)
		if !strings.HasPrefix(ctype, "image/") {
			return nil, "", fmt.Errorf("%w: %s", ErrNotImage, ctype)
		}
	}

	return data, extensionFor(ctype), nil
}

// extensionFor maps a content type to the file extension the workbook
// embedder expects.
func extensionFor(ctype string) string {
	switch {
	case strings.Contains(ctype, "png"):
		return ".png"
	case strings.Contains(ctype, "gif"):
		return ".gif"
	case strings.Contains(ctype, "webp"):
		return ".webp"
	default:
		return ".jpg"
	}
}
