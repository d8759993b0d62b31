package baseline

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (which requires Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func git(t *testing.T, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func initRepo(t *testing.T) {
	t.Helper()
	chdir(t, t.TempDir())
	git(t, "init", "-q")
	git(t, "config", "user.email", "ci@example.com")
	git(t, "config", "user.name", "ci")
}

func commitArtifact(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	git(t, "add", path)
	git(t, "commit", "-q", "-m", "record eval results")
}

func TestLoadFromRef(t *testing.T) {
	initRepo(t)
	commitArtifact(t, ".evalgate/results.json", `{"overall": 0.93, "scores": [{"name": "format", "score": 1.0}]}`)

	prior := Load("HEAD", ".evalgate/results.json")
	require.NotNil(t, prior)
	assert.Equal(t, 0.93, prior.Overall)
	require.Len(t, prior.Scores, 1)
	assert.Equal(t, "format", prior.Scores[0].Name)
}

func TestLoadMissingRefOrPath(t *testing.T) {
	initRepo(t)
	commitArtifact(t, "README.md", "x")

	assert.Nil(t, Load("HEAD", ".evalgate/results.json"))
	assert.Nil(t, Load("no-such-branch", "README.md"))
	assert.Nil(t, Load("", ".evalgate/results.json"))
	assert.Nil(t, Load("HEAD", ""))
}

func TestLoadInvalidArtifact(t *testing.T) {
	initRepo(t)
	commitArtifact(t, ".evalgate/results.json", "{not json")

	assert.Nil(t, Load("HEAD", ".evalgate/results.json"))
}
