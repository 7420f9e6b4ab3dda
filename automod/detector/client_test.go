package detector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDetectorDetect(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/detect", r.URL.Path)
		assert.Equal("Bearer sekrit", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1 << 20))
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		f.Close()

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"detections":[
			{"label":"FEMALE_BREAST_EXPOSED","confidence":0.83},
			{"label":"FACE_FEMALE","confidence":0.97}
		]}`))
	}))
	defer srv.Close()

	d := NewHTTPDetector(srv.URL, "sekrit", 0)
	dets, err := d.Detect(context.Background(), []byte("fake-jpeg"))
	require.NoError(t, err)
	require.Len(t, dets, 2)
	assert.Equal("FEMALE_BREAST_EXPOSED", dets[0].Label)
	assert.InDelta(0.83, dets[0].Confidence, 0.0001)
}

func TestHTTPDetectorErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := NewHTTPDetector(srv.URL, "", 0)
	// keep the retrying client from stretching this test out
	d.Client = srv.Client()

	_, err := d.Detect(context.Background(), []byte("x"))
	require.Error(t, err)
}

func TestHTTPDetectorHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewHTTPDetector(srv.URL, "", 0)
	assert.NoError(t, d.Healthy(context.Background()))
}

type slowDetector struct {
	inflight atomic.Int64
	maxSeen  atomic.Int64
	release  chan struct{}
}

func (s *slowDetector) Detect(ctx context.Context, img []byte) ([]Detection, error) {
	cur := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		prev := s.maxSeen.Load()
		if cur <= prev || s.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}
	<-s.release
	return nil, nil
}

func TestPooledDetectorBoundsConcurrency(t *testing.T) {
	assert := assert.New(t)

	inner := &slowDetector{release: make(chan struct{})}
	pooled := Pooled(inner, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pooled.Detect(context.Background(), nil)
		}()
	}
	close(inner.release)
	wg.Wait()

	assert.LessOrEqual(inner.maxSeen.Load(), int64(2))
}

type failDetector struct{}

func (failDetector) Detect(ctx context.Context, img []byte) ([]Detection, error) {
	return nil, errors.New("boom")
}

func TestPooledDetectorReleasesOnError(t *testing.T) {
	pooled := Pooled(failDetector{}, 1)
	for i := 0; i < 5; i++ {
		_, err := pooled.Detect(context.Background(), nil)
		require.Error(t, err)
	}
}

func TestPooledDetectorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Pooled(failDetector{}, 1).Detect(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
}
