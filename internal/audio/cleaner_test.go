package audio

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactPaths(t *testing.T) {
	assert.Equal(t, "/var/lib/vb/recording-abc.wav", RecordingPath("/var/lib/vb", "abc"))
	assert.Equal(t, "/var/lib/vb/processed-abc.wav", ProcessedPath("/var/lib/vb", "abc"))
}

func TestCleanRemovesAndIgnoresMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a/recording-1.wav", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/a/processed-1.wav", []byte("y"), 0o644))

	c := NewCleaner(fs, nil)
	n := c.Clean("/a/recording-1.wav", "/a/processed-1.wav", "/a/never-written.wav", "")
	assert.Equal(t, 2, n)

	for _, p := range []string{"/a/recording-1.wav", "/a/processed-1.wav"} {
		exists, err := afero.Exists(fs, p)
		require.NoError(t, err)
		assert.False(t, exists, p)
	}
}

func TestPrepareCreatesDirAndSweepsStaleClips(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/recording-old.wav", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/processed-old.wav", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/notes.txt", []byte("keep"), 0o644))

	c := NewCleaner(fs, nil)
	require.NoError(t, c.Prepare("/data"))
	require.NoError(t, c.Prepare("/fresh/dir"))

	isDir, err := afero.IsDir(fs, "/fresh/dir")
	require.NoError(t, err)
	assert.True(t, isDir)

	matches, err := afero.Glob(fs, "/data/*")
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/notes.txt"}, matches)
}
