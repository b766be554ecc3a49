package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/domain/repositories"
)

const hostingName = entities.HostingGitLab

var errClientNotInitialized = errors.New("gitlab client not initialized")

// GitLabHostingRepository implements repositories.HostingRepository for GitLab.
type GitLabHostingRepository struct {
	token  string
	domain string
	client *gl.Client
}

// NewGitLabHostingRepository creates a GitLab connection. An empty baseURL targets gitlab.com.
func NewGitLabHostingRepository(token, baseURL string) repositories.HostingRepository {
	options := []gl.ClientOptionFunc{}
	domain := "gitlab.com"
	if baseURL != "" {
		options = append(options, gl.WithBaseURL(baseURL))
		if parsed, err := url.Parse(baseURL); err == nil && parsed.Host != "" {
			domain = parsed.Host
		}
	}

	client, err := gl.NewClient(token, options...)
	if err != nil {
		// Return a connection that will fail on use rather than panicking at construction
		return &GitLabHostingRepository{token: token, domain: domain, client: nil}
	}
	return &GitLabHostingRepository{token: token, domain: domain, client: client}
}

func (p *GitLabHostingRepository) Type() string { return hostingName }

func (p *GitLabHostingRepository) MatchesURL(rawURL string) bool {
	return strings.Contains(rawURL, "gitlab.com") || strings.Contains(rawURL, p.domain)
}

func (p *GitLabHostingRepository) IsConnected() bool {
	return p.client != nil && p.token != ""
}

func (p *GitLabHostingRepository) GetRepositoryMetadata(
	ctx context.Context,
	info entities.HostingInfo,
) (*entities.RepositoryMetadata, error) {
	if p.client == nil {
		return nil, errClientNotInitialized
	}

	project, _, err := p.client.Projects.GetProject(info.FullName(), nil, gl.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get project %q: %w", info.FullName(), err)
	}

	return &entities.RepositoryMetadata{
		FullName:      project.PathWithNamespace,
		IsFork:        project.ForkedFromProject != nil,
		Private:       project.Visibility != gl.PublicVisibility,
		DefaultBranch: project.DefaultBranch,
	}, nil
}
