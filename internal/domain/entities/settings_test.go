//go:build unit

package entities_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gitrouter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewSettings(t *testing.T) {
	t.Run("should parse durations, roots and hosting connections", func(t *testing.T) {
		// given
		t.Setenv("GITROUTER_TEST_TOKEN", "secret")
		t.Setenv("GITROUTER_TEST_HOME", "/home/dev")
		path := writeConfig(t, `
roots:
  - ${GITROUTER_TEST_HOME}/src
repository_change_delay: 100ms
visibility_ttl: 48h
excludes: ["node_modules"]
subscription:
  plan: pro
  paid: true
hosting:
  - type: github
    token: ${GITROUTER_TEST_TOKEN}
  - type: gitlab
    base_url: https://git.example.com
`)

		// when
		settings, err := entities.NewSettings(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"/home/dev/src"}, settings.Roots)
		assert.Equal(t, 100*time.Millisecond, settings.RepositoryChangeDelay)
		assert.Equal(t, entities.DefaultFileSystemChangeDelay, settings.FileSystemChangeDelay)
		assert.Equal(t, 48*time.Hour, settings.VisibilityTTL)
		assert.Equal(t, entities.Subscription{Plan: "pro", Paid: true}, settings.Subscription)
		assert.Equal(t, "secret", settings.HostingToken(entities.HostingGitHub))
		assert.Equal(t, "https://git.example.com", settings.HostingBaseURL(entities.HostingGitLab))
		assert.NotEmpty(t, settings.StoragePath)
	})

	t.Run("should read tokens from files", func(t *testing.T) {
		// given
		tokenFile := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("from-file\n"), 0o600))
		path := writeConfig(t, "hosting:\n  - type: azuredevops\n    token: "+tokenFile+"\n")

		// when
		settings, err := entities.NewSettings(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "from-file", settings.HostingToken(entities.HostingAzureDevOps))
	})

	t.Run("should reject unsupported hosting types", func(t *testing.T) {
		// given
		path := writeConfig(t, "hosting:\n  - type: bitbucket\n")

		// when
		_, err := entities.NewSettings(path)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bitbucket")
	})

	t.Run("should fall back to environment tokens", func(t *testing.T) {
		// given
		t.Setenv("GITLAB_TOKEN", "env-token")

		// when
		settings := entities.DefaultSettings()

		// then
		assert.Equal(t, "env-token", settings.HostingToken(entities.HostingGitLab))
		assert.Equal(t, "community", settings.Subscription.Plan)
	})
}

func TestLoadSettings(t *testing.T) {
	t.Run("should load the file named by the environment", func(t *testing.T) {
		// given
		path := writeConfig(t, "max_depth: 5\n")
		t.Setenv(entities.ConfigEnvVar, path)

		// when
		settings, err := entities.LoadSettings()

		// then
		require.NoError(t, err)
		assert.Equal(t, 5, settings.MaxDepth)
	})
}
