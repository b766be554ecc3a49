package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/gobwas/glob"
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/domain/repositories"
)

const (
	// ProviderID is the id of the local git provider.
	ProviderID = "git"
	// DefaultRemoteOption marks a remote as the preferred one in .git/config.
	DefaultRemoteOption = "gitrouter-default"

	gitDirName    = ".git"
	gitDirPrefix  = "gitdir:"
	fetchHeadName = "FETCH_HEAD"
)

// HostingLookup returns the hosting connection for a hosting type, or nil.
type HostingLookup interface {
	Get(hostingType string) repositories.HostingRepository
}

// Options configures the local provider.
type Options struct {
	Excludes []string
	MaxDepth int
}

// LocalProviderRepository implements repositories.ProviderRepository over git working copies on disk.
type LocalProviderRepository struct {
	fs       afero.Fs
	hosting  HostingLookup
	excludes []glob.Glob
	maxDepth int

	mu     sync.Mutex
	opened map[string]*git.Repository
}

var (
	_ repositories.ProviderRepository     = (*LocalProviderRepository)(nil)
	_ repositories.WatchingProvider       = (*LocalProviderRepository)(nil)
	_ repositories.FetchInfoProvider      = (*LocalProviderRepository)(nil)
	_ repositories.CacheResettingProvider = (*LocalProviderRepository)(nil)
)

// NewLocalProviderRepository creates the provider. Invalid exclude patterns are logged and skipped.
func NewLocalProviderRepository(fs afero.Fs, hosting HostingLookup, opts Options) *LocalProviderRepository {
	excludes := make([]glob.Glob, 0, len(opts.Excludes))
	for _, pattern := range opts.Excludes {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			logger.Warnf("Ignoring invalid exclude pattern %q: %v", pattern, err)
			continue
		}
		excludes = append(excludes, g)
	}

	return &LocalProviderRepository{
		fs:       fs,
		hosting:  hosting,
		excludes: excludes,
		maxDepth: opts.MaxDepth,
		opened:   make(map[string]*git.Repository),
	}
}

func (p *LocalProviderRepository) Descriptor() entities.ProviderDescriptor {
	return entities.ProviderDescriptor{ID: ProviderID, Name: "Git", Schemes: []string{entities.SchemeFile}}
}

func (p *LocalProviderRepository) CanHandle(locator entities.Locator) (string, bool) {
	if !locator.IsFile() || locator.Path == "" {
		return "", false
	}
	return entities.NormalizePath(locator.Path), true
}

// FindRepositoryRoot walks up from path until it meets a directory holding .git.
func (p *LocalProviderRepository) FindRepositoryRoot(ctx context.Context, path string) (string, error) {
	dir := filepath.FromSlash(path)
	if info, err := p.fs.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if p.isRepositoryRoot(dir) {
			return entities.NormalizePath(dir), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (p *LocalProviderRepository) isRepositoryRoot(dir string) bool {
	_, err := p.fs.Stat(filepath.Join(dir, gitDirName))
	return err == nil
}

func (p *LocalProviderRepository) open(path string) (*git.Repository, error) {
	key := entities.PathKey(path)

	p.mu.Lock()
	defer p.mu.Unlock()

	if repo, ok := p.opened[key]; ok {
		return repo, nil
	}
	repo, err := git.PlainOpenWithOptions(filepath.FromSlash(path), &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %q: %w", path, err)
	}
	p.opened[key] = repo
	return repo, nil
}

// GetRemotes lists the configured remotes, sorted by name.
func (p *LocalProviderRepository) GetRemotes(_ context.Context, path string) ([]entities.Remote, error) {
	repo, err := p.open(path)
	if err != nil {
		return nil, err
	}
	cfg, err := repo.Config()
	if err != nil {
		return nil, fmt.Errorf("failed to read config of %q: %w", path, err)
	}

	remotes := make([]entities.Remote, 0, len(cfg.Remotes))
	for name, remoteCfg := range cfg.Remotes {
		var fetchURL string
		if len(remoteCfg.URLs) > 0 {
			fetchURL = remoteCfg.URLs[0]
		}
		subsection := cfg.Raw.Section("remote").Subsection(name)
		remote := entities.NewRemote(name, fetchURL, subsection.Option("pushurl"))
		remote.Default = strings.EqualFold(subsection.Option(DefaultRemoteOption), "true")
		remotes = append(remotes, remote)
	}

	sort.Slice(remotes, func(i, j int) bool { return remotes[i].Name < remotes[j].Name })
	return remotes, nil
}

// GetUpstreamRemoteName returns the remote tracked by the checked out branch.
func (p *LocalProviderRepository) GetUpstreamRemoteName(_ context.Context, path string) (string, error) {
	repo, err := p.open(path)
	if err != nil {
		return "", err
	}

	head, err := repo.Head()
	if err != nil {
		// unborn branch or detached state without a reference
		return "", nil //nolint:nilerr // no upstream
	}
	if !head.Name().IsBranch() {
		return "", nil
	}

	cfg, err := repo.Config()
	if err != nil {
		return "", fmt.Errorf("failed to read config of %q: %w", path, err)
	}
	branch, ok := cfg.Branches[head.Name().Short()]
	if !ok {
		return "", nil
	}
	return branch.Remote, nil
}

// Visibility asks the hosting services behind each remote. One public remote makes the repository
// public; otherwise it is private. Fails only when every hosting lookup failed.
func (p *LocalProviderRepository) Visibility(
	ctx context.Context,
	path string,
) (entities.Visibility, string, error) {
	remotes, err := p.GetRemotes(ctx, path)
	if err != nil {
		return "", "", err
	}
	if len(remotes) == 0 {
		return entities.VisibilityLocal, "", nil
	}

	var errs []error
	succeeded := false
	for _, remote := range remotes {
		if remote.Hosting == nil || p.hosting == nil {
			continue
		}
		hosting := p.hosting.Get(remote.Hosting.Type)
		if hosting == nil {
			continue
		}

		metadata, metadataErr := hosting.GetRepositoryMetadata(ctx, *remote.Hosting)
		if metadataErr != nil {
			errs = append(errs, metadataErr)
			continue
		}
		succeeded = true
		if !metadata.Private {
			return entities.VisibilityPublic, entities.RemoteIdentity(remote), nil
		}
	}

	if !succeeded && len(errs) > 0 {
		return "", "", fmt.Errorf("failed to resolve visibility of %q: %w", path, errors.Join(errs...))
	}
	return entities.VisibilityPrivate, entities.RemotesFingerprint(remotes), nil
}

// LastFetched is the modification time of FETCH_HEAD; zero when the repository was never fetched.
func (p *LocalProviderRepository) LastFetched(_ context.Context, path string) (time.Time, error) {
	gitDir, err := p.gitDir(path)
	if err != nil {
		return time.Time{}, err
	}

	info, err := p.fs.Stat(filepath.Join(gitDir, fetchHeadName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to stat %s: %w", fetchHeadName, err)
	}
	return info.ModTime(), nil
}

// gitDir resolves the .git directory, following the "gitdir:" file used by worktrees and submodules.
func (p *LocalProviderRepository) gitDir(path string) (string, error) {
	dotGit := filepath.Join(filepath.FromSlash(path), gitDirName)
	info, err := p.fs.Stat(dotGit)
	if err != nil {
		return "", fmt.Errorf("not a git repository %q: %w", path, err)
	}
	if info.IsDir() {
		return dotGit, nil
	}

	data, err := afero.ReadFile(p.fs, dotGit)
	if err != nil {
		return "", fmt.Errorf("failed to read %q: %w", dotGit, err)
	}
	target := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(data)), gitDirPrefix))
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.FromSlash(path), target)
	}
	return filepath.Clean(target), nil
}

// ResetCaches drops the opened repository handles so the next call re-reads the configuration.
func (p *LocalProviderRepository) ResetCaches(layers ...entities.CacheLayer) {
	for _, layer := range layers {
		if layer != entities.CacheProviders {
			continue
		}
		p.mu.Lock()
		p.opened = make(map[string]*git.Repository)
		p.mu.Unlock()
		logger.Debug("Dropped opened git repositories")
		return
	}
}
