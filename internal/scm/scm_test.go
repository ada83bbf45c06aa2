package scm

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v6"
	gitconfig "github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOutsideRepository(t *testing.T) {
	state := Load(t.TempDir())
	assert.Equal(t, "unknown", state.Revision)
	assert.Equal(t, "unknown", state.URL)
}

func TestLoadFromRepository(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("forge\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README")
	require.NoError(t, err)
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://example.com/forge.git"},
	})
	require.NoError(t, err)

	state := Load(dir)
	assert.Equal(t, hash.String(), state.Revision)
	assert.Equal(t, "https://example.com/forge.git", state.URL)
}

func TestLoadDetectsEnclosingRepository(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("forge\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README")
	require.NoError(t, err)
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	nested := filepath.Join(dir, "src", "backend")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	state := Load(nested)
	assert.Equal(t, hash.String(), state.Revision)
	// no origin remote configured: the URL alone degrades
	assert.Equal(t, "unknown", state.URL)
}
