package outstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeBucket answers the handful of S3 calls Publish makes.
type fakeBucket struct {
	mu          sync.Mutex
	headFails   int
	bucketHeads int
	objects     map[string]bool
}

func (f *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if bucket != "renders" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch {
	case key == "" && r.Method == http.MethodHead:
		f.bucketHeads++
		if f.headFails > 0 {
			f.headFails--
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead:
		if !f.objects[key] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("ETag", `"abc"`)
		w.Header().Set("Content-Length", "3")
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		f.objects[key] = true
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newFakeS3(t *testing.T, fb *fakeBucket, log *zap.Logger) *S3 {
	t.Helper()
	fb.objects = map[string]bool{}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	s, err := NewS3(S3Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		Bucket:    "renders",
		AccessKey: "access",
		SecretKey: "secret",
		Prefix:    "out",
	}, log)
	require.NoError(t, err)
	return s
}

func TestS3_BucketCheckFailureIsRetried(t *testing.T) {
	fb := &fakeBucket{headFails: 1}
	s := newFakeS3(t, fb, nil)
	src := render(t, "mp4")

	_, err := s.Publish(context.Background(), "final.mp4", src)
	require.ErrorContains(t, err, "ensure bucket")

	ref, err := s.Publish(context.Background(), "final.mp4", src)
	require.NoError(t, err)
	assert.Equal(t, "s3://renders/out/final.mp4", ref.Location)
	assert.Contains(t, ref.URL, "out/final.mp4")
	assert.Contains(t, ref.URL, "X-Amz-Signature")

	_, err = s.Publish(context.Background(), "other.mp4", src)
	require.NoError(t, err)
	assert.Equal(t, 2, fb.bucketHeads, "bucket is checked once after it succeeds")
}

func TestS3_NeverReplaces(t *testing.T) {
	s := newFakeS3(t, &fakeBucket{}, nil)
	src := render(t, "mp4")

	_, err := s.Publish(context.Background(), "final.mp4", src)
	require.NoError(t, err)
	_, err = s.Publish(context.Background(), "final.mp4", src)
	assert.ErrorIs(t, err, ErrExists)
}

func TestS3_PresignFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := newFakeS3(t, &fakeBucket{}, zap.New(core))
	s.expiry = maxURLExpiry + time.Hour

	ref, err := s.Publish(context.Background(), "final.mp4", render(t, "mp4"))
	require.NoError(t, err, "the object is stored even without a URL")
	assert.Equal(t, "s3://renders/out/final.mp4", ref.Location)
	assert.Empty(t, ref.URL)

	entries := logs.FilterMessage("presign output url").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "out/final.mp4", entries[0].ContextMap()["key"])
}
