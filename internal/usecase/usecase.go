package usecase

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forPelevin/brollcut/internal/domain/timeline"
	"github.com/forPelevin/brollcut/internal/ports"
	"github.com/forPelevin/brollcut/internal/types"
)

const DefaultConcurrency = 4

type Deps struct {
	Video   ports.VideoTool
	ASR     ports.ASR
	Oracle  ports.Oracle
	Fetch   ports.Fetcher
	Outputs ports.OutputStore
	Log     *zap.Logger
}

type Settings struct {
	// CacheDir holds per-request workspaces under runs/. Defaults to ".cache".
	CacheDir string
	Rules    timeline.Rules
	// Concurrency bounds parallel candidate fetch and fit. Defaults to 4.
	Concurrency int
}

type Usecase struct {
	d        Deps
	s        Settings
	log      *zap.Logger
	validate *validator.Validate
	newID    func() string
}

func New(d Deps, s Settings) Usecase {
	if s.CacheDir == "" {
		s.CacheDir = ".cache"
	}
	if s.Rules == (timeline.Rules{}) {
		s.Rules = timeline.DefaultRules()
	}
	if s.Concurrency <= 0 {
		s.Concurrency = DefaultConcurrency
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return Usecase{
		d:        d,
		s:        s,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		newID:    uuid.NewString,
	}
}

// workspace is the request-scoped scratch directory. Nothing in it outlives
// the request.
type workspace struct {
	id  string
	dir string
}

func (u Usecase) openWorkspace() (workspace, func(), error) {
	id := u.newID()
	dir := filepath.Join(u.s.CacheDir, "runs", id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return workspace{}, nil, fmt.Errorf("create workspace: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			u.log.Warn("remove workspace", zap.String("dir", dir), zap.Error(err))
		}
	}
	return workspace{id: id, dir: dir}, cleanup, nil
}

// file names a workspace file after its role, keeping the locator's
// extension so tools can sniff the container.
func (w workspace) file(role, locator string) string {
	ext := ".mp4"
	p := locator
	if u, err := url.Parse(locator); err == nil && u.Path != "" {
		p = u.Path
	}
	if e := strings.ToLower(path.Ext(p)); len(e) > 1 && len(e) <= 5 && isAlnum(e[1:]) {
		ext = e
	}
	return filepath.Join(w.dir, role+ext)
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func (u Usecase) checkCandidates(cs []types.Candidate) (map[string]types.Candidate, error) {
	out := make(map[string]types.Candidate, len(cs))
	for _, c := range cs {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: candidate id is empty", types.ErrInvalidRequest)
		}
		if _, dup := out[id]; dup {
			return nil, fmt.Errorf("%w: duplicate candidate id %q", types.ErrInvalidRequest, id)
		}
		c.ID = id
		out[id] = c
	}
	return out, nil
}

func (u Usecase) checkShape(v any) error {
	if err := u.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidRequest, err)
	}
	return nil
}

func mediaErr(what string, err error) error {
	if errors.Is(err, types.ErrMediaUnavailable) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%w: %s: %w", types.ErrMediaUnavailable, what, err)
}
