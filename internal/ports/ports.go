package ports

import (
	"context"

	"github.com/forPelevin/brollcut/internal/domain/compose"
	"github.com/forPelevin/brollcut/internal/media"
	"github.com/forPelevin/brollcut/internal/types"
)

type VideoTool interface {
	ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error
	Probe(ctx context.Context, path string) (media.Handle, error)
	Encode(ctx context.Context, g compose.Graph, outMP4 string) error
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

// Oracle proposes insertions. Its output is untrusted.
type Oracle interface {
	Propose(ctx context.Context, in types.OracleInput) ([]types.ProposedInsertion, error)
}

// Fetcher retrieves a locator into destPath. Fetching the same locator to
// the same path twice has the same effect as fetching it once.
type Fetcher interface {
	Fetch(ctx context.Context, locator, destPath string) error
}

// OutputStore publishes finished renders. It never replaces an existing output.
type OutputStore interface {
	Publish(ctx context.Context, name, localPath string) (types.OutputRef, error)
}
