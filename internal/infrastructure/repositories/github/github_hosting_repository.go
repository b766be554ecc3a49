package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v66/github"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/domain/repositories"
)

const hostingName = entities.HostingGitHub

// GitHubHostingRepository implements repositories.HostingRepository for GitHub.
type GitHubHostingRepository struct {
	token  string
	domain string
	client *gh.Client
}

// NewGitHubHostingRepository creates a GitHub connection. An empty baseURL targets github.com.
func NewGitHubHostingRepository(token, baseURL string) (repositories.HostingRepository, error) {
	client := gh.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	domain := "github.com"
	if baseURL != "" {
		enterprise, err := client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", baseURL, err)
		}
		client = enterprise
		if parsed, err := url.Parse(baseURL); err == nil && parsed.Host != "" {
			domain = parsed.Host
		}
	}

	return &GitHubHostingRepository{token: token, domain: domain, client: client}, nil
}

// NewGitHubHostingRepositoryWithClient wraps an existing client, e.g. one pointed at a test server.
func NewGitHubHostingRepositoryWithClient(token string, client *gh.Client) repositories.HostingRepository {
	return &GitHubHostingRepository{token: token, domain: "github.com", client: client}
}

func (p *GitHubHostingRepository) Type() string { return hostingName }

func (p *GitHubHostingRepository) MatchesURL(rawURL string) bool {
	return strings.Contains(rawURL, "github.com") || strings.Contains(rawURL, p.domain)
}

// IsConnected is true once a token is configured: anonymous lookups would hit the rate limit.
func (p *GitHubHostingRepository) IsConnected() bool {
	return p.token != ""
}

func (p *GitHubHostingRepository) GetRepositoryMetadata(
	ctx context.Context,
	info entities.HostingInfo,
) (*entities.RepositoryMetadata, error) {
	repo, _, err := p.client.Repositories.Get(ctx, info.Org, info.RepoName)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %q: %w", info.FullName(), err)
	}

	return &entities.RepositoryMetadata{
		FullName:      repo.GetFullName(),
		IsFork:        repo.GetFork(),
		Private:       repo.GetPrivate(),
		DefaultBranch: repo.GetDefaultBranch(),
	}, nil
}
