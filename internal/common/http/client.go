// internal/common/http/client.go
package http

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// HeaderProfile selects the request header set sent upstream.
type HeaderProfile string

const (
	// ProfileHardened mimics a desktop browser to reduce upstream blocking.
	ProfileHardened HeaderProfile = "hardened"
	// ProfileMinimal is the downgrade used after a 403.
	ProfileMinimal HeaderProfile = "minimal"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

var hardenedHeaders = map[string]string{
	"Accept":          "application/json, application/xml, text/xml;q=0.9, */*;q=0.8",
	"Accept-Language": "az,en-US;q=0.9,en;q=0.8,ru;q=0.7",
	"Cache-Control":   "no-cache",
	"Pragma":          "no-cache",
	"Connection":      "keep-alive",
	"DNT":             "1",
	"Sec-Fetch-Dest":  "empty",
	"Sec-Fetch-Mode":  "cors",
	"Sec-Fetch-Site":  "same-origin",
}

// SessionFactory hands out fresh client sessions that share one transport.
type SessionFactory struct {
	transport http.RoundTripper
	userAgent string
}

func NewSessionFactory(userAgent string) *SessionFactory {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second

	return &SessionFactory{transport: transport, userAgent: userAgent}
}

// NewSession returns a client with an empty cookie jar.
func (f *SessionFactory) NewSession() *Session {
	jar, _ := cookiejar.New(nil) // only fails on a non-nil options error path
	return &Session{
		client:    &http.Client{Transport: f.transport, Jar: jar},
		userAgent: f.userAgent,
	}
}

// Session is one upstream client session.
type Session struct {
	client    *http.Client
	userAgent string
}

// Get issues a GET with the given header profile.
func (s *Session) Get(ctx context.Context, url string, profile HeaderProfile) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	ApplyHeaders(req, profile, s.userAgent)
	return s.client.Do(req)
}

// Do sends a prepared request as-is.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	return s.client.Do(req)
}

// HTTPClient exposes the session's client for libraries that take one.
func (s *Session) HTTPClient() *http.Client {
	return s.client
}

// ApplyHeaders sets the header profile on req.
func ApplyHeaders(req *http.Request, profile HeaderProfile, userAgent string) {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	switch profile {
	case ProfileMinimal:
		req.Header.Set("User-Agent", "Mozilla/5.0")
		req.Header.Set("Accept", "*/*")
	default:
		for k, v := range hardenedHeaders {
			req.Header.Set(k, v)
		}
		req.Header.Set("User-Agent", userAgent)
	}
}
