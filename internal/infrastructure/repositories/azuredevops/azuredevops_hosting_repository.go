package azuredevops

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/domain/repositories"
)

const (
	hostingName    = entities.HostingAzureDevOps
	defaultBaseURL = "https://dev.azure.com"
	apiVersion     = "7.0"
	requestTimeout = 30 * time.Second
)

// AzureDevOpsHostingRepository implements repositories.HostingRepository for Azure DevOps.
type AzureDevOpsHostingRepository struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAzureDevOpsHostingRepository creates an Azure DevOps connection. An empty baseURL targets dev.azure.com.
func NewAzureDevOpsHostingRepository(token, baseURL string) repositories.HostingRepository {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &AzureDevOpsHostingRepository{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

type gitRepository struct {
	Name          string     `json:"name"`
	DefaultBranch string     `json:"defaultBranch"`
	IsFork        bool       `json:"isFork"`
	Project       gitProject `json:"project"`
}

type gitProject struct {
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
}

func (p *AzureDevOpsHostingRepository) Type() string { return hostingName }

func (p *AzureDevOpsHostingRepository) MatchesURL(rawURL string) bool {
	return strings.Contains(rawURL, "dev.azure.com") || strings.Contains(rawURL, "visualstudio.com")
}

func (p *AzureDevOpsHostingRepository) IsConnected() bool {
	return p.token != ""
}

func (p *AzureDevOpsHostingRepository) GetRepositoryMetadata(
	ctx context.Context,
	info entities.HostingInfo,
) (*entities.RepositoryMetadata, error) {
	endpoint := fmt.Sprintf("/%s/%s/_apis/git/repositories/%s?api-version=%s",
		url.PathEscape(info.Org), url.PathEscape(info.Project), url.PathEscape(info.RepoName), apiVersion)

	body, err := p.doRequest(ctx, http.MethodGet, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %q: %w", info.FullName(), err)
	}

	var repo gitRepository
	if err = json.Unmarshal(body, &repo); err != nil {
		return nil, fmt.Errorf("failed to parse repository response: %w", err)
	}

	return &entities.RepositoryMetadata{
		FullName:      info.Org + "/" + repo.Project.Name + "/" + repo.Name,
		IsFork:        repo.IsFork,
		Private:       !strings.EqualFold(repo.Project.Visibility, "public"),
		DefaultBranch: strings.TrimPrefix(repo.DefaultBranch, "refs/heads/"),
	}, nil
}

func (p *AzureDevOpsHostingRepository) doRequest(ctx context.Context, method, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set Basic Auth with PAT
	auth := base64.StdEncoding.EncodeToString([]byte(":" + p.token))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
