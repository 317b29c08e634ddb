package digest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const helloSum = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func TestBytes(t *testing.T) {
	assert.Equal(t, helloSum, Bytes([]byte("hello")))
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Bytes(nil),
	)
}

func TestFileMatchesBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	assert.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	got, err := File(path, nil)
	assert.NoError(t, err)
	assert.Equal(t, helloSum, got)
}

func TestFileReusedBuffer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")
	content := strings.Repeat("x", 3<<20)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0644))

	buf := make([]byte, 1<<20)
	got, err := File(path, buf)
	assert.NoError(t, err)
	assert.Equal(t, Bytes([]byte(content)), got)
}

func TestFileMissing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "nope"), nil)
	assert.True(t, os.IsNotExist(err))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(helloSum, strings.ToUpper(helloSum)))
	assert.False(t, Equal(helloSum, Bytes([]byte("world"))))
}

func TestValidHex(t *testing.T) {
	assert.True(t, ValidHex(helloSum))
	assert.False(t, ValidHex("abc123"))
	assert.False(t, ValidHex(strings.Repeat("z", HexLen)))
}
