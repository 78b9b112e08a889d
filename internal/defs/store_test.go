package defs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir string, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSetDefaultFirstWins(t *testing.T) {
	s := New()
	assert.True(t, s.SetDefault("PRODUCER", "plan44"))
	assert.False(t, s.SetDefault("PRODUCER", "unknown"))
	assert.Equal(t, "plan44", s.Value("PRODUCER"))

	s.Set("PRODUCER", "other")
	assert.Equal(t, "other", s.Value("PRODUCER"))
}

func TestSetDefaultKeepsEmptyValue(t *testing.T) {
	s := New()
	s.Set("PRODUCER", "")
	assert.False(t, s.SetDefault("PRODUCER", "unknown"))
	value, ok := s.Get("PRODUCER")
	assert.True(t, ok)
	assert.Empty(t, value)
}

func TestMergeFileLastWins(t *testing.T) {
	dir := t.TempDir()
	s := New()
	s.Set("A", "initial")
	s.SetDefault("C", "kept")

	ok := s.MergeFile(writeFile(t, dir, "a.defs", "A=1\nB=2\nA=3\n"))
	require.True(t, ok)
	assert.Equal(t, "3", s.Value("A"))
	assert.Equal(t, "2", s.Value("B"))
	assert.Equal(t, "kept", s.Value("C"))

	require.True(t, s.MergeFile(writeFile(t, dir, "b.defs", "B=override\n")))
	assert.Equal(t, "override", s.Value("B"))
}

func TestMergeFileMissingOrEmpty(t *testing.T) {
	dir := t.TempDir()
	s := New()
	s.Set("A", "1")
	assert.False(t, s.MergeFile(filepath.Join(dir, "missing.defs")))
	assert.False(t, s.MergeFile(writeFile(t, dir, "comments.defs", "# only comments\n\n")))
	assert.Equal(t, 1, s.Len())
}

func TestMergeFirstLine(t *testing.T) {
	dir := t.TempDir()
	s := New()
	assert.True(t, s.MergeFirstLine(writeFile(t, dir, "p44feed", "beta\n"), KeyFirmwareFeed))
	assert.Equal(t, "beta", s.Value(KeyFirmwareFeed))
	assert.False(t, s.MergeFirstLine(filepath.Join(dir, "missing"), KeyFirmwareVersion))
	assert.False(t, s.Has(KeyFirmwareVersion))
}

func TestIsTrue(t *testing.T) {
	s := New()
	for value, want := range map[string]bool{
		"1": true, "ok": true, "true": true, "Yes": true, "T": true,
		"0": false, "": false, "no": false, "false": false, "okay": false,
	} {
		s.Set("FLAG", value)
		assert.Equal(t, want, s.IsTrue("FLAG"), value)
	}
	assert.False(t, s.IsTrue("UNDEFINED"))
}

func TestInt(t *testing.T) {
	s := New()
	s.Set("LEVEL", "2")
	s.Set("PREFIX", " 7abc")
	s.Set("TEXT", "none")
	assert.Equal(t, 2, s.Int("LEVEL", 0))
	assert.Equal(t, 7, s.Int("PREFIX", 0))
	assert.Equal(t, 9, s.Int("TEXT", 9))
	assert.Equal(t, 5, s.Int("MISSING", 5))
}

func TestKeysSnapshotReset(t *testing.T) {
	s := New()
	s.SetAll(map[string]string{"B": "2", "A": "1"})
	assert.Equal(t, []string{"A", "B"}, s.Keys())

	snap := s.Snapshot()
	snap["A"] = "changed"
	assert.Equal(t, "1", s.Value("A"))

	s.Reset()
	assert.Zero(t, s.Len())
}

func TestWriteShell(t *testing.T) {
	s := New()
	s.Set("PRODUCT_MODEL", "P44-DSB-E2")
	s.Set("A_QUOTE", "it's")
	var out bytes.Buffer
	require.NoError(t, s.WriteShell(&out))
	assert.Equal(t, "A_QUOTE='it'\\''s'\nPRODUCT_MODEL='P44-DSB-E2'\n", out.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWriteShellError(t *testing.T) {
	s := New()
	s.Set("A", "1")
	err := s.WriteShell(failingWriter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	s, read, err := Load(writeFile(t, dir, "p44defs", "PRODUCT_GTIN=123\nUNIT_SERIALNO=42\n"))
	require.NoError(t, err)
	assert.True(t, read)
	assert.Equal(t, "123", s.Value(KeyProductGTIN))
	assert.Equal(t, "PRODUCT_GTIN=123\nUNIT_SERIALNO=42\n", s.Text())

	_, read, err = Load(filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.False(t, read)
}

func TestLoadCommentOnlyReadsNothing(t *testing.T) {
	s, read, err := Load(writeFile(t, t.TempDir(), "p44defs", "# nothing\n\n"))
	require.NoError(t, err)
	assert.False(t, read)
	assert.Equal(t, 0, s.Len())
}
