package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/jailcrawler/internal/models"
)

func TestFetchReturnsBody(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	c := NewClientWithHTTP(srv.Client(), 0, "jailcrawler-test")
	body, err := c.Fetch(context.Background(), KindListing, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", string(body))
	assert.Equal(t, "jailcrawler-test", gotUA)
}

func TestFetchNonSuccessStatusIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("image bytes that must be ignored"))
	}))
	defer srv.Close()

	c := NewClientWithHTTP(srv.Client(), 0, "")
	_, err := c.FetchImage(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNetwork)
}

func TestFetchTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClientWithHTTP(http.DefaultClient, 0, "")
	_, err := c.Fetch(context.Background(), KindDetail, url)
	assert.ErrorIs(t, err, models.ErrNetwork)
}

func TestFetchSpacesRequests(t *testing.T) {
	var (
		mu    sync.Mutex
		times []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
	}))
	defer srv.Close()

	delay := 40 * time.Millisecond
	c := NewClientWithHTTP(srv.Client(), delay, "")
	for i := 0; i < 3; i++ {
		_, err := c.Fetch(context.Background(), KindDetail, srv.URL)
		require.NoError(t, err)
	}

	require.Len(t, times, 3)
	assert.GreaterOrEqual(t, times[2].Sub(times[0]), 2*delay-5*time.Millisecond)
}

func TestFetchHonoursCancellation(t *testing.T) {
	c := NewClientWithHTTP(http.DefaultClient, time.Hour, "")
	ctx, cancel := context.WithCancel(context.Background())

	// Consume the only burst token so the next call has to wait.
	require.True(t, c.limiter.Allow())
	cancel()

	_, err := c.Fetch(ctx, KindDetail, "http://127.0.0.1:1/")
	assert.ErrorIs(t, err, models.ErrNetwork)
}
