package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/competitorlens/lens-cli/internal/resilience"
)

func testRetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:      3,
		InitialBackoff:   time.Millisecond,
		MaxBackoff:       5 * time.Millisecond,
		Multiplier:       2.0,
		JitterFraction:   0,
		RateLimitBackoff: time.Millisecond,
	}
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(ClientOptions{
		BaseURL:  srv.URL,
		APIKey:   "test-key",
		MinDelay: time.Millisecond,
		Retry:    testRetryConfig(),
	})
	require.NoError(t, err)
	return c
}

func writeEnvelope(w http.ResponseWriter, data any) {
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func TestListCompetitorsDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/competitors", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		writeEnvelope(w, []Competitor{{ID: "c-1", Name: "BTCTurk"}})
	}))
	defer srv.Close()

	got, err := newTestClient(t, srv).ListCompetitors(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "BTCTurk", got[0].Name)
}

func TestEnvelopeFailureIsAnErrorDespite200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "database unavailable"})
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).ListFeatures(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database unavailable")
}

func TestTransientStatusIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeEnvelope(w, []Feature{{ID: "f-1", Name: "Convert"}})
	}))
	defer srv.Close()

	got, err := newTestClient(t, srv).ListFeatures(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRateLimitedRequestRetriesAndSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeEnvelope(w, []Screenshot{})
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).ListScreenshots(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"success":false,"error":"bad payload"}`))
	}))
	defer srv.Close()

	err := newTestClient(t, srv).Restore(context.Background(), RestoreRequest{ScreenshotID: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUploadSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(8<<20))
		assert.Equal(t, "c-1", r.FormValue("competitorId"))
		assert.Equal(t, "f-1", r.FormValue("featureId"))
		assert.Equal(t, "true", r.FormValue("isOnboarding"))

		file, header, err := r.FormFile("screenshot")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "signup.png", header.Filename)

		writeEnvelope(w, Screenshot{ID: "sc-1", CompetitorID: "c-1", FileName: "signup.png"})
	}))
	defer srv.Close()

	featureID := "f-1"
	created, err := newTestClient(t, srv).Upload(context.Background(), UploadRequest{
		CompetitorID: "c-1",
		FeatureID:    &featureID,
		FileName:     "signup.png",
		IsOnboarding: true,
		Body:         strings.NewReader("fake-png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "sc-1", created.ID)
}
