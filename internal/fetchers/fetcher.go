// internal/fetchers/fetcher.go
package fetchers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "banking-assistant/internal/common/errors"
	httpclient "banking-assistant/internal/common/http"
	"banking-assistant/internal/common/metrics"
)

const maxBodyBytes = 16 << 20

// RequestFunc performs one request with the given header profile.
type RequestFunc func(ctx context.Context, profile httpclient.HeaderProfile) ([]byte, error)

// AntiBlocking is a one-shot strategy for upstreams that reject browser-like
// headers. It only acts on the first attempt: a 403 there is repeated once
// with the minimal header profile. If that also fails, the error is returned
// as transient and the retry policy takes over.
type AntiBlocking struct {
	Primary  httpclient.HeaderProfile
	Fallback httpclient.HeaderProfile
}

func DefaultAntiBlocking() AntiBlocking {
	return AntiBlocking{
		Primary:  httpclient.ProfileHardened,
		Fallback: httpclient.ProfileMinimal,
	}
}

// Wrap turns a request into a retryable attempt.
func (a AntiBlocking) Wrap(source string, do RequestFunc, log Logger) AttemptFunc[[]byte] {
	return func(ctx context.Context, attempt uint) ([]byte, error) {
		body, err := do(ctx, a.Primary)
		if err == nil || attempt > 0 || apperrors.StatusCode(err) != http.StatusForbidden {
			return body, err
		}

		metrics.UpstreamFetchAttempts.WithLabelValues(source, "blocked").Inc()
		if log != nil {
			log.Warn("Upstream returned 403, retrying with minimal headers", map[string]interface{}{
				"source": source,
			})
		}
		return do(ctx, a.Fallback)
	}
}

// Fetcher downloads upstream payloads through the anti-blocking step and the
// retry policy. Each request runs on a fresh client session.
type Fetcher struct {
	sessions  *httpclient.SessionFactory
	retrier   *Retrier
	antiBlock AntiBlocking
	logger    Logger
}

func NewFetcher(sessions *httpclient.SessionFactory, retrier *Retrier, log Logger) *Fetcher {
	return &Fetcher{
		sessions:  sessions,
		retrier:   retrier,
		antiBlock: DefaultAntiBlocking(),
		logger:    log,
	}
}

// Get returns the body of a 2xx response from url.
func (f *Fetcher) Get(ctx context.Context, source, url string) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.UpstreamFetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()

	request := func(ctx context.Context, profile httpclient.HeaderProfile) ([]byte, error) {
		return f.request(ctx, source, url, profile)
	}
	return Run(ctx, f.retrier, source, f.antiBlock.Wrap(source, request, f.logger))
}

// Retrier exposes the retry policy for sources that do not speak plain GET.
func (f *Fetcher) Retrier() *Retrier {
	return f.retrier
}

// Sessions exposes the session factory for sources that bring their own client.
func (f *Fetcher) Sessions() *httpclient.SessionFactory {
	return f.sessions
}

func (f *Fetcher) request(ctx context.Context, source, url string, profile httpclient.HeaderProfile) ([]byte, error) {
	resp, err := f.sessions.NewSession().Get(ctx, url, profile)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, apperrors.NewUpstreamStatusError(source, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", source, err)
	}
	return body, nil
}
