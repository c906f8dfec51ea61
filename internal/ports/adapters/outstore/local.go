package outstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/forPelevin/brollcut/internal/types"
)

// Local publishes into a directory on disk.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Local{dir: abs}, nil
}

func (l *Local) Dir() string { return l.dir }

// Publish copies localPath next to its final name and hard-links it into
// place; the link fails instead of replacing an existing output.
func (l *Local) Publish(ctx context.Context, name, localPath string) (types.OutputRef, error) {
	n, err := cleanName(name)
	if err != nil {
		return types.OutputRef{}, err
	}
	dest := filepath.Join(l.dir, n)
	if _, err := os.Lstat(dest); err == nil {
		return types.OutputRef{}, fmt.Errorf("%w: %s", ErrExists, dest)
	}

	partial, err := os.CreateTemp(l.dir, "."+n+".*.partial")
	if err != nil {
		return types.OutputRef{}, err
	}
	defer os.Remove(partial.Name())

	src, err := os.Open(localPath)
	if err != nil {
		_ = partial.Close()
		return types.OutputRef{}, err
	}
	_, err = io.Copy(partial, src)
	_ = src.Close()
	if cerr := partial.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return types.OutputRef{}, fmt.Errorf("copy output: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return types.OutputRef{}, err
	}

	if err := os.Link(partial.Name(), dest); err != nil {
		if errors.Is(err, os.ErrExist) {
			return types.OutputRef{}, fmt.Errorf("%w: %s", ErrExists, dest)
		}
		return types.OutputRef{}, fmt.Errorf("publish output: %w", err)
	}
	return types.OutputRef{Name: n, Location: dest}, nil
}
