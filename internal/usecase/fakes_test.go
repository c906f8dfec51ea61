package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forPelevin/brollcut/internal/domain/compose"
	"github.com/forPelevin/brollcut/internal/media"
	"github.com/forPelevin/brollcut/internal/types"
)

// fakeFetcher writes the locator itself as file content so fakeVideo can
// tell which source a workspace file came from.
type fakeFetcher struct {
	mu    sync.Mutex
	fail  map[string]error
	hook  func(locator string) error
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, locator, dest string) error {
	f.mu.Lock()
	f.calls = append(f.calls, locator)
	f.mu.Unlock()
	if f.hook != nil {
		if err := f.hook(locator); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.fail[locator]; err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(locator), 0o644)
}

type fakeVideo struct {
	handles   map[string]media.Handle
	encodeErr error

	mu     sync.Mutex
	graphs []compose.Graph
}

func (v *fakeVideo) ExtractAudioMono16k(_ context.Context, _, outWav string) error {
	return os.WriteFile(outWav, []byte("wav"), 0o644)
}

func (v *fakeVideo) Probe(_ context.Context, path string) (media.Handle, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return media.Handle{}, err
	}
	h, ok := v.handles[string(b)]
	if !ok {
		return media.Handle{}, fmt.Errorf("%w: %s is not a video", types.ErrMediaUnavailable, b)
	}
	h.Path = path
	return h, nil
}

func (v *fakeVideo) Encode(_ context.Context, g compose.Graph, out string) error {
	v.mu.Lock()
	v.graphs = append(v.graphs, g)
	v.mu.Unlock()
	if v.encodeErr != nil {
		return v.encodeErr
	}
	return os.WriteFile(out, []byte("encoded"), 0o644)
}

type fakeASR struct {
	tr  types.Transcript
	err error
}

func (a fakeASR) Transcribe(context.Context, string, string) (types.Transcript, error) {
	return a.tr, a.err
}

type fakeOracle struct {
	out   []types.ProposedInsertion
	err   error
	input types.OracleInput
	calls int
}

func (o *fakeOracle) Propose(_ context.Context, in types.OracleInput) ([]types.ProposedInsertion, error) {
	o.calls++
	o.input = in
	return o.out, o.err
}

type fakeStore struct {
	err       error
	published map[string]string
}

func (s *fakeStore) Publish(_ context.Context, name, localPath string) (types.OutputRef, error) {
	if s.err != nil {
		return types.OutputRef{}, s.err
	}
	b, err := os.ReadFile(localPath)
	if err != nil {
		return types.OutputRef{}, err
	}
	if s.published == nil {
		s.published = map[string]string{}
	}
	s.published[name] = string(b)
	return types.OutputRef{Name: name, Location: "mem://" + name}, nil
}

var baseHandle = media.Handle{Duration: 30 * time.Second, Width: 1080, Height: 1920, FrameRate: 30, HasAudio: true}

func clip(d time.Duration) media.Handle {
	return media.Handle{Duration: d, Width: 1920, Height: 1080, FrameRate: 24}
}

type harness struct {
	uc     Usecase
	fetch  *fakeFetcher
	video  *fakeVideo
	oracle *fakeOracle
	store  *fakeStore
	cache  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		fetch: &fakeFetcher{fail: map[string]error{}},
		video: &fakeVideo{handles: map[string]media.Handle{
			"a.mp4":  baseHandle,
			"b1.mp4": clip(10 * time.Second),
			"b2.mp4": clip(2 * time.Second),
			"b3.mp4": clip(8 * time.Second),
		}},
		oracle: &fakeOracle{},
		store:  &fakeStore{},
		cache:  t.TempDir(),
	}
	h.uc = New(Deps{
		Video: h.video,
		ASR: fakeASR{tr: types.Transcript{Segments: []types.Segment{
			{Start: 0, End: 5, Text: "open the app"},
			{Start: 5, End: 12, Text: "then tap start"},
		}}},
		Oracle:  h.oracle,
		Fetch:   h.fetch,
		Outputs: h.store,
	}, Settings{CacheDir: h.cache})
	h.uc.newID = func() string { return "req-1" }
	return h
}

func (h *harness) requireWorkspaceGone(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(h.cache, "runs"))
	require.NoError(t, err)
	require.Empty(t, entries, "request workspace must be removed")
}

var candidates = []types.Candidate{
	{ID: "b1", Description: "phone screen", Source: "b1.mp4"},
	{ID: "b2", Description: "street", Source: "b2.mp4"},
	{ID: "b3", Description: "kitchen", Source: "b3.mp4"},
}
