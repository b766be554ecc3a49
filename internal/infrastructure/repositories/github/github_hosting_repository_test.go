//go:build unit

package github_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	gh "github.com/google/go-github/v66/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	ghRepo "github.com/rios0rios0/gitrouter/internal/infrastructure/repositories/github"
)

func newTestClient(t *testing.T, handler http.Handler) *gh.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := gh.NewClient(nil)
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.BaseURL = baseURL
	return client
}

func TestGitHubHostingRepository(t *testing.T) {
	t.Parallel()

	t.Run("should read fork and privacy flags", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/me/widgets", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"full_name":"me/widgets","fork":true,"private":false,"default_branch":"main"}`))
		})
		hosting := ghRepo.NewGitHubHostingRepositoryWithClient("token", newTestClient(t, mux))

		// when
		metadata, err := hosting.GetRepositoryMetadata(context.Background(), entities.HostingInfo{
			Type: entities.HostingGitHub, Org: "me", RepoName: "widgets",
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, &entities.RepositoryMetadata{
			FullName: "me/widgets", IsFork: true, Private: false, DefaultBranch: "main",
		}, metadata)
	})

	t.Run("should wrap API failures", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/acme/missing", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		})
		hosting := ghRepo.NewGitHubHostingRepositoryWithClient("token", newTestClient(t, mux))

		// when
		_, err := hosting.GetRepositoryMetadata(context.Background(), entities.HostingInfo{Org: "acme", RepoName: "missing"})

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "acme/missing")
	})

	t.Run("should only count as connected with a token", func(t *testing.T) {
		t.Parallel()

		// given
		anonymous, err := ghRepo.NewGitHubHostingRepository("", "")
		require.NoError(t, err)
		enterprise, err := ghRepo.NewGitHubHostingRepository("token", "https://git.example.com/")
		require.NoError(t, err)

		// when / then
		assert.False(t, anonymous.IsConnected())
		assert.True(t, enterprise.IsConnected())
		assert.True(t, enterprise.MatchesURL("git@git.example.com:acme/widgets.git"))
		assert.True(t, anonymous.MatchesURL("https://github.com/acme/widgets"))
		assert.False(t, anonymous.MatchesURL("https://gitlab.com/acme/widgets"))
	})
}
