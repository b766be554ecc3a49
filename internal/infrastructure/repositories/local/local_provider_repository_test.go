//go:build unit

package local_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	infraRepos "github.com/rios0rios0/gitrouter/internal/infrastructure/repositories"
	"github.com/rios0rios0/gitrouter/internal/infrastructure/repositories/local"
	doubles "github.com/rios0rios0/gitrouter/test/infrastructure/repositorydoubles"
)

func initRepository(t *testing.T, remotes map[string]string) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	for name, url := range remotes {
		_, err = repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}})
		require.NoError(t, err)
	}
	return entities.NormalizePath(dir), repo
}

func TestGetRemotes(t *testing.T) {
	t.Parallel()

	t.Run("should list remotes sorted by name with push URLs and the default flag", func(t *testing.T) {
		t.Parallel()

		// given
		path, repo := initRepository(t, map[string]string{
			"upstream": "https://github.com/acme/widgets.git",
			"origin":   "git@github.com:me/widgets.git",
		})
		cfg, err := repo.Config()
		require.NoError(t, err)
		cfg.Raw.Section("remote").Subsection("origin").SetOption("pushurl", "git@github.com:me/widgets-push.git")
		cfg.Raw.Section("remote").Subsection("upstream").SetOption(local.DefaultRemoteOption, "true")
		require.NoError(t, repo.SetConfig(cfg))
		provider := local.NewLocalProviderRepository(afero.NewOsFs(), nil, local.Options{})

		// when
		remotes, err := provider.GetRemotes(context.Background(), path)

		// then
		require.NoError(t, err)
		require.Len(t, remotes, 2)
		assert.Equal(t, "origin", remotes[0].Name)
		assert.Equal(t, "git@github.com:me/widgets-push.git", remotes[0].PushURL)
		assert.False(t, remotes[0].Default)
		assert.Equal(t, "upstream", remotes[1].Name)
		assert.True(t, remotes[1].Default)
		require.NotNil(t, remotes[1].Hosting)
		assert.Equal(t, "acme/widgets", remotes[1].Hosting.FullName())
	})

	t.Run("should have no upstream on an unborn branch", func(t *testing.T) {
		t.Parallel()

		// given
		path, _ := initRepository(t, map[string]string{"origin": "https://github.com/acme/widgets.git"})
		provider := local.NewLocalProviderRepository(afero.NewOsFs(), nil, local.Options{})

		// when
		upstream, err := provider.GetUpstreamRemoteName(context.Background(), path)

		// then
		require.NoError(t, err)
		assert.Empty(t, upstream)
	})

	t.Run("should fail outside a repository", func(t *testing.T) {
		t.Parallel()

		// given
		provider := local.NewLocalProviderRepository(afero.NewOsFs(), nil, local.Options{})

		// when
		_, err := provider.GetRemotes(context.Background(), t.TempDir())

		// then
		require.Error(t, err)
	})
}

func TestVisibility(t *testing.T) {
	t.Parallel()

	t.Run("should be local without remotes", func(t *testing.T) {
		t.Parallel()

		// given
		path, _ := initRepository(t, nil)
		provider := local.NewLocalProviderRepository(afero.NewOsFs(), infraRepos.NewHostingRegistry(), local.Options{})

		// when
		visibility, hash, err := provider.Visibility(context.Background(), path)

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.VisibilityLocal, visibility)
		assert.Empty(t, hash)
	})

	t.Run("should be public when any hosted remote is public", func(t *testing.T) {
		t.Parallel()

		// given
		path, _ := initRepository(t, map[string]string{
			"origin":   "git@github.com:me/widgets.git",
			"upstream": "https://github.com/acme/widgets.git",
		})
		hosting := infraRepos.NewHostingRegistry()
		hosting.Register(doubles.NewStubHostingRepository(entities.HostingGitHub).
			WithRepository("me/widgets", true, true).
			WithRepository("acme/widgets", false, false))
		provider := local.NewLocalProviderRepository(afero.NewOsFs(), hosting, local.Options{})

		// when
		visibility, hash, err := provider.Visibility(context.Background(), path)

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.VisibilityPublic, visibility)
		assert.Equal(t, entities.RemoteIdentity(entities.NewRemote("upstream", "https://github.com/acme/widgets.git", "")), hash)
	})

	t.Run("should be private when no remote is public", func(t *testing.T) {
		t.Parallel()

		// given
		path, _ := initRepository(t, map[string]string{
			"origin": "git@github.com:acme/secret.git",
			"mirror": "https://example.org/acme/secret.git",
		})
		hosting := infraRepos.NewHostingRegistry()
		hosting.Register(doubles.NewStubHostingRepository(entities.HostingGitHub).WithRepository("acme/secret", false, true))
		provider := local.NewLocalProviderRepository(afero.NewOsFs(), hosting, local.Options{})

		// when
		visibility, hash, err := provider.Visibility(context.Background(), path)

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.VisibilityPrivate, visibility)
		assert.NotEmpty(t, hash)
	})

	t.Run("should fail when every hosting lookup failed", func(t *testing.T) {
		t.Parallel()

		// given
		path, _ := initRepository(t, map[string]string{"origin": "https://github.com/acme/widgets.git"})
		stub := doubles.NewStubHostingRepository(entities.HostingGitHub)
		stub.MetadataErr = errors.New("rate limited")
		hosting := infraRepos.NewHostingRegistry()
		hosting.Register(stub)
		provider := local.NewLocalProviderRepository(afero.NewOsFs(), hosting, local.Options{})

		// when
		_, _, err := provider.Visibility(context.Background(), path)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
	})
}

func TestResetCaches(t *testing.T) {
	t.Parallel()

	t.Run("should re-read the configuration after a provider reset", func(t *testing.T) {
		t.Parallel()

		// given
		path, repo := initRepository(t, map[string]string{"origin": "https://github.com/acme/widgets.git"})
		provider := local.NewLocalProviderRepository(afero.NewOsFs(), nil, local.Options{})
		before, err := provider.GetRemotes(context.Background(), path)
		require.NoError(t, err)
		_, err = repo.CreateRemote(&config.RemoteConfig{Name: "upstream", URLs: []string{"https://github.com/up/widgets.git"}})
		require.NoError(t, err)

		// when
		provider.ResetCaches(entities.CacheProviders)
		after, err := provider.GetRemotes(context.Background(), path)

		// then
		require.NoError(t, err)
		assert.Len(t, before, 1)
		assert.Len(t, after, 2)
	})
}
