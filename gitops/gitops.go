// Package gitops is the local git collaborator: clone, fast-forward pull,
// worktree status, and directory removal, built on go-git over a billy
// filesystem so the same code runs against the OS filesystem and against
// an in-memory filesystem in tests.
package gitops

import (
	"context"
	"errors"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// DefaultStorerCacheSize is the default LRU object cache budget in MiB.
const DefaultStorerCacheSize = 96

// TreeState describes what is found at a local path.
type TreeState int8

const (
	// Missing means nothing exists at the path.
	Missing TreeState = iota

	// Clean means a git repository with no local modifications.
	Clean

	// Dirty means a git repository with uncommitted local changes.
	Dirty

	// NotARepo means the path exists but is not a git repository.
	NotARepo
)

// String returns a human-readable name for the tree state.
func (s TreeState) String() string {
	switch s {
	case Missing:
		return "missing"
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case NotARepo:
		return "not-a-repo"
	default:
		return "unknown"
	}
}

// Client is the git capability the sync scheduler drives. Implementations
// must be safe for concurrent use across distinct paths; no session state
// is shared between concurrent calls.
type Client interface {
	// Clone creates a new working copy of remoteURL at path.
	Clone(ctx context.Context, remoteURL, path string) error

	// Pull fast-forwards the repository at path from its origin remote.
	// An already up-to-date repository is a success.
	Pull(ctx context.Context, path string) error

	// Status inspects the path and reports its tree state.
	Status(ctx context.Context, path string) (TreeState, error)

	// Remove deletes the directory at path recursively.
	Remove(ctx context.Context, path string) error
}

// AuthProvider resolves authentication methods for git operations.
// Implementations should handle different URL schemes and credential sources.
type AuthProvider interface {
	// Method returns the appropriate transport.AuthMethod for the given
	// remote URL. Returns nil if no authentication is needed for this URL.
	Method(remoteURL string) (transport.AuthMethod, error)
}

// Options configures the go-git backed client.
type Options struct {
	// FS is the REQUIRED filesystem root all repository paths are
	// relative to.
	FS billy.Filesystem

	// Auth is an optional provider that resolves per-URL credentials.
	// If nil, no authentication will be available.
	Auth AuthProvider

	// ShallowDepth sets the depth for shallow clone operations.
	// If 0, full clones are performed.
	ShallowDepth int

	// StorerCacheSize sets the LRU object cache budget in MiB.
	// Defaults to DefaultStorerCacheSize.
	StorerCacheSize int
}

// Validate checks that the Options are properly configured.
func (o *Options) Validate() error {
	if o.FS == nil {
		return errors.New("gitops: FS is required")
	}
	if o.ShallowDepth < 0 {
		return errors.New("gitops: ShallowDepth cannot be negative")
	}
	if o.StorerCacheSize < 0 {
		return errors.New("gitops: StorerCacheSize cannot be negative")
	}
	return nil
}

// applyDefaults sets default values for any unset fields in Options.
func (o *Options) applyDefaults() {
	if o.StorerCacheSize == 0 {
		o.StorerCacheSize = DefaultStorerCacheSize
	}
}

// GoGit implements Client using go-git.
type GoGit struct {
	fs      billy.Filesystem
	auth    AuthProvider
	depth   int
	storerC int
}

// New creates a go-git backed client.
func New(opts *Options) (*GoGit, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	return &GoGit{
		fs:      opts.FS,
		auth:    opts.Auth,
		depth:   opts.ShallowDepth,
		storerC: opts.StorerCacheSize,
	}, nil
}

// open builds storage and worktree filesystems scoped to path.
func (g *GoGit) open(path string) (*filesystem.Storage, billy.Filesystem, error) {
	worktreeFS, err := g.fs.Chroot(path)
	if err != nil {
		return nil, nil, WrapErrorf(err, "scoping to %q", path)
	}

	dotGitFS, err := worktreeFS.Chroot(git.GitDirName)
	if err != nil {
		return nil, nil, WrapErrorf(err, "scoping to %q/.git", path)
	}

	storage := filesystem.NewStorage(dotGitFS, cache.NewObjectLRU(cache.FileSize(g.storerC)*cache.MiByte))
	return storage, worktreeFS, nil
}

// Clone implements Client. Shallow cloning applies when the client was
// configured with a depth; shallow clones are single-branch.
func (g *GoGit) Clone(ctx context.Context, remoteURL, path string) error {
	if remoteURL == "" {
		return errors.New("gitops: remote URL cannot be empty")
	}

	if err := g.fs.MkdirAll(path, 0o755); err != nil {
		return WrapErrorf(err, "creating %q", path)
	}

	storage, worktreeFS, err := g.open(path)
	if err != nil {
		return err
	}

	cloneOpts := &git.CloneOptions{
		URL:          remoteURL,
		Depth:        g.depth,
		SingleBranch: g.depth > 0,
	}
	if g.auth != nil {
		method, authErr := g.auth.Method(remoteURL)
		if authErr != nil {
			return WrapError(ErrAuthFailed, authErr.Error())
		}
		cloneOpts.Auth = method
	}

	if _, err := git.CloneContext(ctx, storage, worktreeFS, cloneOpts); err != nil {
		return classifyRemoteError(err, "clone failed")
	}
	return nil
}

// Pull implements Client. Only fast-forward updates are applied; a pull
// that would require a merge commit reports a dirty-tree conflict.
func (g *GoGit) Pull(ctx context.Context, path string) error {
	storage, worktreeFS, err := g.open(path)
	if err != nil {
		return err
	}

	repo, err := git.Open(storage, worktreeFS)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return WrapError(ErrNotARepo, path)
		}
		return WrapErrorf(err, "opening %q", path)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return WrapErrorf(err, "worktree of %q", path)
	}

	pullOpts := &git.PullOptions{}
	if g.auth != nil {
		remote, remoteErr := repo.Remote(git.DefaultRemoteName)
		if remoteErr != nil {
			return WrapErrorf(remoteErr, "remote of %q", path)
		}
		method, authErr := g.auth.Method(remote.Config().URLs[0])
		if authErr != nil {
			return WrapError(ErrAuthFailed, authErr.Error())
		}
		pullOpts.Auth = method
	}

	err = worktree.PullContext(ctx, pullOpts)
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
		return nil
	case errors.Is(err, git.ErrNonFastForwardUpdate),
		errors.Is(err, git.ErrUnstagedChanges):
		return WrapError(ErrDirtyTree, path)
	default:
		return classifyRemoteError(err, "pull failed")
	}
}

// Status implements Client.
func (g *GoGit) Status(ctx context.Context, path string) (TreeState, error) {
	if _, err := g.fs.Stat(path); err != nil {
		// Anything we cannot stat is treated as absent.
		return Missing, nil
	}

	storage, worktreeFS, err := g.open(path)
	if err != nil {
		return Missing, err
	}

	repo, err := git.Open(storage, worktreeFS)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return NotARepo, nil
		}
		return NotARepo, WrapErrorf(err, "opening %q", path)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return NotARepo, WrapErrorf(err, "worktree of %q", path)
	}

	status, err := worktree.Status()
	if err != nil {
		return NotARepo, WrapErrorf(err, "status of %q", path)
	}

	if status.IsClean() {
		return Clean, nil
	}
	return Dirty, nil
}

// Remove implements Client.
func (g *GoGit) Remove(ctx context.Context, path string) error {
	if err := util.RemoveAll(g.fs, path); err != nil {
		return WrapErrorf(err, "removing %q", path)
	}
	return nil
}

// classifyRemoteError maps go-git transport failures onto the collaborator
// error taxonomy.
func classifyRemoteError(err error, msg string) error {
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		return WrapError(ErrAuthFailed, msg)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return WrapErrorf(ErrNetworkFailed, "%s: %v", msg, err)
	}
}
