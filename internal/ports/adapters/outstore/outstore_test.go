package outstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "render.mp4")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLocal_Publish(t *testing.T) {
	store, err := NewLocal(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)

	ref, err := store.Publish(context.Background(), "final_a.mp4", render(t, "first"))
	require.NoError(t, err)
	assert.Equal(t, "final_a.mp4", ref.Name)
	assert.Equal(t, filepath.Join(store.Dir(), "final_a.mp4"), ref.Location)

	b, err := os.ReadFile(ref.Location)
	require.NoError(t, err)
	assert.Equal(t, "first", string(b))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no partial files are left behind")
}

func TestLocal_NeverReplaces(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = store.Publish(context.Background(), "final_a.mp4", render(t, "first"))
	require.NoError(t, err)
	_, err = store.Publish(context.Background(), "final_a.mp4", render(t, "second"))
	assert.ErrorIs(t, err, ErrExists)

	b, err := os.ReadFile(filepath.Join(store.Dir(), "final_a.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(b))
}

func TestLocal_RejectsPathNames(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	for _, name := range []string{"", "../x.mp4", "a/b.mp4", ".."} {
		_, err := store.Publish(context.Background(), name, render(t, "x"))
		assert.Error(t, err, name)
	}
}

func TestLocal_MissingSource(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	_, err = store.Publish(context.Background(), "final.mp4", filepath.Join(t.TempDir(), "nope.mp4"))
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(store.Dir(), "final.mp4"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewS3_Validation(t *testing.T) {
	_, err := NewS3(S3Config{}, nil)
	assert.Error(t, err)
	_, err = NewS3(S3Config{Endpoint: "localhost:9000", Bucket: "b"}, nil)
	assert.Error(t, err, "credentials are required")

	s, err := NewS3(S3Config{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "a", SecretKey: "s", Prefix: "/renders/"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "renders/final.mp4", s.key("final.mp4"))
	assert.Equal(t, "us-east-1", s.region)
	assert.Equal(t, time.Hour, s.expiry)

	_, err = NewS3(S3Config{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "a", SecretKey: "s", URLExpiry: 8 * 24 * time.Hour}, nil)
	assert.ErrorContains(t, err, "exceeds")
}

func TestS3Config_Enabled(t *testing.T) {
	assert.False(t, S3Config{Endpoint: "x"}.Enabled())
	assert.True(t, S3Config{Endpoint: "x", Bucket: "b"}.Enabled())
}
