package storage

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStager_StageAndRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "staging")
	s, err := NewStager(dir)
	require.NoError(t, err)

	path, err := s.Stage(strings.NewReader("ecg-bytes"), "Patient Scan.PNG")
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, ".png", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ecg-bytes", string(data))

	require.NoError(t, s.Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// second removal is a no-op
	assert.NoError(t, s.Remove(path))
}

func TestStager_UniqueNames(t *testing.T) {
	s, err := NewStager(t.TempDir())
	require.NoError(t, err)

	a, err := s.Stage(strings.NewReader("a"), "same.png")
	require.NoError(t, err)
	b, err := s.Stage(strings.NewReader("b"), "same.png")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestGenerateObjectName(t *testing.T) {
	name := GenerateObjectName(7, "scan.PNG")
	assert.Regexp(t, regexp.MustCompile(`^users/7/ecg/[0-9a-f-]{36}\.png$`), name)
}
