//go:build unit

package gitlab_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	glRepo "github.com/rios0rios0/gitrouter/internal/infrastructure/repositories/gitlab"
)

func TestGitLabHostingRepository(t *testing.T) {
	t.Parallel()

	t.Run("should treat non-public projects as private and forked ones as forks", func(t *testing.T) {
		t.Parallel()

		// given
		var requested string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requested = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": 42,
				"path_with_namespace": "acme/platform/widgets",
				"visibility": "internal",
				"default_branch": "main",
				"forked_from_project": {"id": 7}
			}`))
		}))
		defer server.Close()
		hosting := glRepo.NewGitLabHostingRepository("token", server.URL)

		// when
		metadata, err := hosting.GetRepositoryMetadata(context.Background(), entities.HostingInfo{
			Type: entities.HostingGitLab, Org: "acme/platform", RepoName: "widgets",
		})

		// then
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(requested, "/projects/acme/platform/widgets"))
		assert.Equal(t, "acme/platform/widgets", metadata.FullName)
		assert.True(t, metadata.IsFork)
		assert.True(t, metadata.Private)
		assert.Equal(t, "main", metadata.DefaultBranch)
	})

	t.Run("should report public projects", func(t *testing.T) {
		t.Parallel()

		// given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id": 1, "path_with_namespace": "acme/widgets", "visibility": "public"}`))
		}))
		defer server.Close()
		hosting := glRepo.NewGitLabHostingRepository("token", server.URL)

		// when
		metadata, err := hosting.GetRepositoryMetadata(context.Background(), entities.HostingInfo{Org: "acme", RepoName: "widgets"})

		// then
		require.NoError(t, err)
		assert.False(t, metadata.Private)
		assert.False(t, metadata.IsFork)
	})

	t.Run("should wrap missing projects", func(t *testing.T) {
		t.Parallel()

		// given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"message":"404 Project Not Found"}`, http.StatusNotFound)
		}))
		defer server.Close()
		hosting := glRepo.NewGitLabHostingRepository("token", server.URL)

		// when
		_, err := hosting.GetRepositoryMetadata(context.Background(), entities.HostingInfo{Org: "acme", RepoName: "gone"})

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "acme/gone")
	})

	t.Run("should match self-hosted domains", func(t *testing.T) {
		t.Parallel()

		// given
		hosting := glRepo.NewGitLabHostingRepository("", "https://git.example.com")

		// when / then
		assert.True(t, hosting.MatchesURL("git@git.example.com:acme/widgets.git"))
		assert.False(t, hosting.IsConnected())
	})
}
