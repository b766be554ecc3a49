//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	testkit "github.com/rios0rios0/testkit/pkg/test"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

// RemoteBuilder helps create test remotes with a fluent interface.
type RemoteBuilder struct {
	*testkit.BaseBuilder
	name      string
	fetchURL  string
	pushURL   string
	isDefault bool
}

// NewRemoteBuilder creates a new remote builder with sensible defaults.
func NewRemoteBuilder() *RemoteBuilder {
	return &RemoteBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		name:        "origin",
		fetchURL:    "https://github.com/acme/widgets.git",
	}
}

// WithName sets the remote name.
func (b *RemoteBuilder) WithName(name string) *RemoteBuilder {
	b.name = name
	return b
}

// WithURL sets the fetch URL.
func (b *RemoteBuilder) WithURL(url string) *RemoteBuilder {
	b.fetchURL = url
	return b
}

// WithPushURL sets a push URL different from the fetch URL.
func (b *RemoteBuilder) WithPushURL(url string) *RemoteBuilder {
	b.pushURL = url
	return b
}

// AsDefault marks the remote as the user-preferred one.
func (b *RemoteBuilder) AsDefault() *RemoteBuilder {
	b.isDefault = true
	return b
}

// Build creates the remote (satisfies testkit.Builder interface).
func (b *RemoteBuilder) Build() interface{} {
	return b.BuildRemote()
}

// BuildRemote creates the remote with a concrete return type, parsing its hosting information.
func (b *RemoteBuilder) BuildRemote() entities.Remote {
	remote := entities.NewRemote(b.name, b.fetchURL, b.pushURL)
	remote.Default = b.isDefault
	return remote
}

// Reset clears the builder state, allowing it to be reused.
func (b *RemoteBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.name = "origin"
	b.fetchURL = "https://github.com/acme/widgets.git"
	b.pushURL = ""
	b.isDefault = false
	return b
}

// Clone creates a deep copy of the RemoteBuilder.
func (b *RemoteBuilder) Clone() testkit.Builder {
	return &RemoteBuilder{
		BaseBuilder: b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		name:        b.name,
		fetchURL:    b.fetchURL,
		pushURL:     b.pushURL,
		isDefault:   b.isDefault,
	}
}
