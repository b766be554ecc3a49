//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	testkit "github.com/rios0rios0/testkit/pkg/test"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

// RepositoryInfoBuilder helps create discovered-repository records with a fluent interface.
type RepositoryInfoBuilder struct {
	*testkit.BaseBuilder
	path   string
	folder string
	closed bool
}

// NewRepositoryInfoBuilder creates a new builder with sensible defaults.
func NewRepositoryInfoBuilder() *RepositoryInfoBuilder {
	return &RepositoryInfoBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		path:        "/work/widgets",
		folder:      "/work",
	}
}

// WithPath sets the repository root path.
func (b *RepositoryInfoBuilder) WithPath(path string) *RepositoryInfoBuilder {
	b.path = path
	return b
}

// WithFolder sets the workspace root the repository was found under.
func (b *RepositoryInfoBuilder) WithFolder(folder string) *RepositoryInfoBuilder {
	b.folder = folder
	return b
}

// AsClosed marks the repository as known but closed.
func (b *RepositoryInfoBuilder) AsClosed() *RepositoryInfoBuilder {
	b.closed = true
	return b
}

// Build creates the record (satisfies testkit.Builder interface).
func (b *RepositoryInfoBuilder) Build() interface{} {
	return b.BuildInfo()
}

// BuildInfo creates the record with a concrete return type.
func (b *RepositoryInfoBuilder) BuildInfo() entities.RepositoryInfo {
	return entities.RepositoryInfo{
		Path:   entities.NormalizePath(b.path),
		Root:   entities.NewFileLocator(b.path),
		Folder: b.folder,
		Closed: b.closed,
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *RepositoryInfoBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.path = "/work/widgets"
	b.folder = "/work"
	b.closed = false
	return b
}

// Clone creates a deep copy of the RepositoryInfoBuilder.
func (b *RepositoryInfoBuilder) Clone() testkit.Builder {
	return &RepositoryInfoBuilder{
		BaseBuilder: b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		path:        b.path,
		folder:      b.folder,
		closed:      b.closed,
	}
}
