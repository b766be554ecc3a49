package entities

// ProviderDescriptor identifies a backend provider.
type ProviderDescriptor struct {
	ID      string
	Name    string
	Schemes []string
}

// Supports reports whether the provider declared scheme.
func (d ProviderDescriptor) Supports(scheme string) bool {
	if scheme == "" {
		scheme = SchemeFile
	}
	for _, s := range d.Schemes {
		if s == scheme {
			return true
		}
	}
	return false
}

// ProviderEventKind is the lifecycle notification a provider reports for one of its repositories.
type ProviderEventKind int

const (
	ProviderRepositoryOpened ProviderEventKind = iota
	ProviderRepositoryClosed
	// ProviderRepositoryWillChange precedes a change the provider is about to make itself.
	ProviderRepositoryWillChange
	ProviderRepositoryChanged
)

// ProviderEvent is a repository lifecycle notification emitted by a provider.
type ProviderEvent struct {
	Kind    ProviderEventKind
	Path    string
	Changes ChangeSet
}

// RepositoryMetadata is what a hosting service says about a repository.
type RepositoryMetadata struct {
	FullName      string
	IsFork        bool
	Private       bool
	DefaultBranch string
}
