package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCatalogCommandUsesConfiguredList(t *testing.T) {
	t.Setenv("HERO_CATALOG", "Abathur, Li Li ,Zeratul")

	out, err := runCommand(t, "catalog")
	require.NoError(t, err)
	assert.Equal(t, "Abathur\nLi Li\nZeratul\n", out)
}

func TestCatalogCommandFallsBackToEmbeddedList(t *testing.T) {
	t.Setenv("HERO_CATALOG", "")

	out, err := runCommand(t, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "Abathur\n")
}

func TestEnvFileFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("HERO_CATALOG=Ana,Anduin\n"), 0o600))
	// Registered with t.Setenv so godotenv's os.Setenv is undone after the test.
	t.Setenv("HERO_CATALOG", "")
	require.NoError(t, os.Unsetenv("HERO_CATALOG"))

	out, err := runCommand(t, "--env-file", path, "catalog")
	require.NoError(t, err)
	assert.Equal(t, "Ana\nAnduin\n", out)
}

func TestInvalidConfigFails(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "etcd")

	_, err := runCommand(t, "catalog")
	assert.Error(t, err)
}

func TestPrewarmRejectsHeroOutsideCatalog(t *testing.T) {
	t.Setenv("HERO_CATALOG", "Abathur,Alarak")

	_, err := runCommand(t, "prewarm", "--hero", "Alarak", "--hero", "Nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Nobody"`)
}
