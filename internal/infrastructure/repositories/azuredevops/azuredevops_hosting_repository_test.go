//go:build unit

package azuredevops_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	adoRepo "github.com/rios0rios0/gitrouter/internal/infrastructure/repositories/azuredevops"
)

func TestAzureDevOpsHostingRepository(t *testing.T) {
	t.Parallel()

	info := entities.HostingInfo{
		Type: entities.HostingAzureDevOps, Domain: "dev.azure.com", Org: "acme", Project: "tools", RepoName: "widgets",
	}

	t.Run("should authenticate with the PAT and read the repository", func(t *testing.T) {
		t.Parallel()

		// given
		var authHeader, path, apiVersion string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader = r.Header.Get("Authorization")
			path = r.URL.Path
			apiVersion = r.URL.Query().Get("api-version")
			_, _ = w.Write([]byte(`{
				"name": "widgets",
				"defaultBranch": "refs/heads/main",
				"isFork": true,
				"project": {"name": "tools", "visibility": "public"}
			}`))
		}))
		defer server.Close()
		hosting := adoRepo.NewAzureDevOpsHostingRepository("pat", server.URL+"/")

		// when
		metadata, err := hosting.GetRepositoryMetadata(context.Background(), info)

		// then
		require.NoError(t, err)
		assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte(":pat")), authHeader)
		assert.Equal(t, "/acme/tools/_apis/git/repositories/widgets", path)
		assert.Equal(t, "7.0", apiVersion)
		assert.Equal(t, &entities.RepositoryMetadata{
			FullName: "acme/tools/widgets", IsFork: true, Private: false, DefaultBranch: "main",
		}, metadata)
	})

	t.Run("should treat private projects as private", func(t *testing.T) {
		t.Parallel()

		// given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"name": "widgets", "project": {"name": "tools", "visibility": "private"}}`))
		}))
		defer server.Close()
		hosting := adoRepo.NewAzureDevOpsHostingRepository("pat", server.URL)

		// when
		metadata, err := hosting.GetRepositoryMetadata(context.Background(), info)

		// then
		require.NoError(t, err)
		assert.True(t, metadata.Private)
		assert.False(t, metadata.IsFork)
	})

	t.Run("should surface API errors", func(t *testing.T) {
		t.Parallel()

		// given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}))
		defer server.Close()
		hosting := adoRepo.NewAzureDevOpsHostingRepository("bad", server.URL)

		// when
		_, err := hosting.GetRepositoryMetadata(context.Background(), info)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("should match Azure DevOps remotes only", func(t *testing.T) {
		t.Parallel()

		// given
		hosting := adoRepo.NewAzureDevOpsHostingRepository("", "")

		// when / then
		assert.True(t, hosting.MatchesURL("https://acme.visualstudio.com/tools/_git/widgets"))
		assert.False(t, hosting.MatchesURL("https://github.com/acme/widgets"))
		assert.False(t, hosting.IsConnected())
	})
}
