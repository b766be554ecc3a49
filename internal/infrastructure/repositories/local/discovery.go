package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

// DiscoverRepositories walks root down to the configured depth and reports every directory holding
// a .git entry. Nested repositories are reported too; .git directories are never entered.
func (p *LocalProviderRepository) DiscoverRepositories(
	ctx context.Context,
	root entities.Locator,
) ([]entities.RepositoryInfo, error) {
	rootPath, ok := p.CanHandle(root)
	if !ok {
		return nil, &entities.ProviderNotSupportedError{ProviderID: ProviderID, Capability: "scheme " + root.Scheme}
	}
	base := filepath.FromSlash(rootPath)

	var found []entities.RepositoryInfo
	err := afero.Walk(p.fs, base, func(current string, info os.FileInfo, walkErr error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if walkErr != nil {
			// unreadable directories are skipped, the root itself must be readable
			if current == base {
				return walkErr
			}
			logger.Debugf("Skipping %q: %v", current, walkErr)
			return filepath.SkipDir
		}
		if !info.IsDir() {
			return nil
		}
		if info.Name() == gitDirName {
			return filepath.SkipDir
		}

		rel, relErr := filepath.Rel(base, current)
		if relErr != nil {
			return filepath.SkipDir
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && p.isExcluded(rel, info.Name()) {
			return filepath.SkipDir
		}

		if p.isRepositoryRoot(current) {
			found = append(found, entities.RepositoryInfo{
				Path:   entities.NormalizePath(current),
				Root:   entities.NewFileLocator(current),
				Folder: rootPath,
			})
		}

		if p.maxDepth > 0 && depth(rel) >= p.maxDepth {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debugf("Found %d repositories under %s", len(found), rootPath)
	return found, nil
}

func (p *LocalProviderRepository) isExcluded(rel, name string) bool {
	for _, g := range p.excludes {
		if g.Match(rel) || g.Match(name) {
			return true
		}
	}
	return false
}

func depth(rel string) int {
	if rel == "." || rel == "" {
		return 0
	}
	return strings.Count(rel, "/") + 1
}
