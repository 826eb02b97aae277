package scope_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/qodana/pkg/scope"
)

func TestAll(t *testing.T) {
	t.Parallel()

	assert.True(t, scope.All{}.Contains("anything/at/all.go"))
}

func TestFromFiles_NormalisesPaths(t *testing.T) {
	t.Parallel()

	files := scope.FromFiles([]string{"./src/a.go", `src\b.go`, "", "src/a.go"})

	assert.Equal(t, 2, files.Len())
	assert.Equal(t, []string{"src/a.go", "src/b.go"}, files.Paths())
	assert.True(t, files.Contains("src/a.go"))
	assert.True(t, files.Contains("./src/b.go"))
	assert.False(t, files.Contains("src/c.go"))
}

func TestFiles_NilContainsEverything(t *testing.T) {
	t.Parallel()

	var files *scope.Files

	assert.True(t, files.Contains("x.go"))
	assert.Zero(t, files.Len())
}

func TestFromChangesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "changes.txt")
	require.NoError(t, os.WriteFile(path, []byte("# changed\nsrc/a.go\n\n  src/b.go  \n"), 0o600))

	files, err := scope.FromChangesFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.go", "src/b.go"}, files.Paths())
}

func TestFromChangesFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := scope.FromChangesFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
