package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/forge/errors"
)

var nssOnly = []string{".nss"}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCollectSingleFile(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "one.nss", "void main() {}")

	jobs, err := CollectJobs([]string{src}, false, nssOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{src}, jobs)
}

func TestCollectRejectsUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	bad := writeSource(t, dir, "notes.txt", "not a script")

	_, err := CollectJobs([]string{bad}, false, nssOnly)
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestCollectRejectsMissingPath(t *testing.T) {
	_, err := CollectJobs([]string{"/no/such/forge/path"}, false, nssOnly)
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestCollectDirectoryNonRecursive(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.nss", "")
	b := writeSource(t, dir, "b.nss", "")
	writeSource(t, dir, "readme.md", "")
	writeSource(t, dir, filepath.Join("sub", "nested.nss"), "")

	jobs, err := CollectJobs([]string{dir}, false, nssOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, jobs, "only matching immediate entries, in name order")
}

func TestCollectDirectoryRecursive(t *testing.T) {
	dir := t.TempDir()
	top := writeSource(t, dir, "top.nss", "")
	nested := writeSource(t, dir, filepath.Join("sub", "deep", "nested.nss"), "")

	jobs, err := CollectJobs([]string{dir}, true, nssOnly)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{top, nested}, jobs)
}

func TestCollectDeduplicatesKeepingFirstOccurrence(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.nss", "")
	b := writeSource(t, dir, "b.nss", "")

	// The explicit file spec comes first, then the directory scan repeats it.
	jobs, err := CollectJobs([]string{b, dir}, false, nssOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{b, a}, jobs)
}

func TestCollectReturnsAbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "rel.nss", "")

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	jobs, err := CollectJobs([]string{"rel.nss"}, false, nssOnly)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.True(t, filepath.IsAbs(jobs[0]))
}

func TestCollectExtensionNormalization(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "caps.NSS", "")

	jobs, err := CollectJobs([]string{src}, false, []string{"nss"})
	require.NoError(t, err)
	assert.Equal(t, []string{src}, jobs)
}
