// internal/common/http/client_test.go
package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_HeaderProfiles(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	factory := NewSessionFactory("")

	resp, err := factory.NewSession().Get(context.Background(), server.URL, ProfileHardened)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Contains(t, got.Get("User-Agent"), "Chrome")
	assert.Equal(t, "cors", got.Get("Sec-Fetch-Mode"))
	assert.NotEmpty(t, got.Get("Accept-Language"))

	resp, err = factory.NewSession().Get(context.Background(), server.URL, ProfileMinimal)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Mozilla/5.0", got.Get("User-Agent"))
	assert.Equal(t, "*/*", got.Get("Accept"))
	assert.Empty(t, got.Get("Sec-Fetch-Mode"))
}

func TestSessionFactory_FreshCookieJar(t *testing.T) {
	var cookies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sid"); err == nil {
			cookies = append(cookies, c.Value)
		}
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc", Path: "/"})
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	factory := NewSessionFactory("test-agent")

	first := factory.NewSession()
	for i := 0; i < 2; i++ {
		resp, err := first.Get(context.Background(), server.URL, ProfileHardened)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, []string{"abc"}, cookies, "same session replays its cookie")

	resp, err := factory.NewSession().Get(context.Background(), server.URL, ProfileHardened)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Len(t, cookies, 1, "new session starts without cookies")
}
