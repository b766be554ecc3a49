package entities

import (
	"path"
	"sort"
	"sync"
)

// RepositoryIndex holds the known repositories keyed by their comparison key. It never holds two
// repositories with the same key.
type RepositoryIndex struct {
	mu    sync.RWMutex
	repos map[string]*Repository
}

// NewRepositoryIndex creates an empty index.
func NewRepositoryIndex() *RepositoryIndex {
	return &RepositoryIndex{repos: make(map[string]*Repository)}
}

// Add inserts repo unless a repository with the same key is already present.
// It returns the repository kept in the index and whether repo was inserted.
func (it *RepositoryIndex) Add(repo *Repository) (*Repository, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if existing, ok := it.repos[repo.ID()]; ok {
		return existing, false
	}
	it.repos[repo.ID()] = repo
	return repo, true
}

// Remove deletes the repository stored at p and returns it.
func (it *RepositoryIndex) Remove(p string) (*Repository, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()

	key := PathKey(p)
	repo, ok := it.repos[key]
	if ok {
		delete(it.repos, key)
	}
	return repo, ok
}

// Get returns the repository whose path is exactly p.
func (it *RepositoryIndex) Get(p string) (*Repository, bool) {
	it.mu.RLock()
	defer it.mu.RUnlock()

	repo, ok := it.repos[PathKey(p)]
	return repo, ok
}

// GetClosest returns the repository whose path is the nearest ancestor of (or equal to) p.
func (it *RepositoryIndex) GetClosest(p string) (*Repository, bool) {
	it.mu.RLock()
	defer it.mu.RUnlock()

	if len(it.repos) == 0 || p == "" {
		return nil, false
	}

	current := PathKey(p)
	for {
		if repo, ok := it.repos[current]; ok {
			return repo, true
		}
		parent := path.Dir(current)
		if parent == current || parent == "." {
			return nil, false
		}
		current = parent
	}
}

// Has reports whether a repository is stored at exactly p.
func (it *RepositoryIndex) Has(p string) bool {
	_, ok := it.Get(p)
	return ok
}

// Len is the number of repositories in the index.
func (it *RepositoryIndex) Len() int {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return len(it.repos)
}

// Values returns every repository sorted by path.
func (it *RepositoryIndex) Values() []*Repository {
	it.mu.RLock()
	result := make([]*Repository, 0, len(it.repos))
	for _, repo := range it.repos {
		result = append(result, repo)
	}
	it.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Path() < result[j].Path() })
	return result
}

// Filter returns the repositories for which keep returns true, sorted by path.
func (it *RepositoryIndex) Filter(keep func(*Repository) bool) []*Repository {
	all := it.Values()
	result := all[:0]
	for _, repo := range all {
		if keep(repo) {
			result = append(result, repo)
		}
	}
	return result
}
