package scan

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashTempFile(t *testing.T, algo string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	h, err := NewHasher(algo)
	require.NoError(t, err)
	digest, err := h.Sum(path)
	require.NoError(t, err)
	return digest
}

func TestHasherKnownValues(t *testing.T) {
	assert.Equal(t,
		"aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d",
		hashTempFile(t, AlgoSHA1, []byte("hello")))
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		hashTempFile(t, AlgoSHA256, []byte("hello")))
}

func TestHasherXXH3Shape(t *testing.T) {
	digest := hashTempFile(t, AlgoXXH3, []byte("hello"))
	assert.Len(t, digest, 32)
	_, err := hex.DecodeString(digest)
	assert.NoError(t, err)

	// Stable across calls, different for different content.
	assert.Equal(t, digest, hashTempFile(t, AlgoXXH3, []byte("hello")))
	assert.NotEqual(t, digest, hashTempFile(t, AlgoXXH3, []byte("hellp")))
}

func TestHasherUnknownAlgo(t *testing.T) {
	_, err := NewHasher("md5")
	assert.Error(t, err)
}

func TestHasherLargeFileMatchesDirectDigest(t *testing.T) {
	// Past the mmap threshold the digest must still match a plain
	// in-memory computation.
	content := bytes.Repeat([]byte("0123456789abcdef"), (mmapThreshold/16)+1024)
	want := sha1.Sum(content)

	got := hashTempFile(t, AlgoSHA1, content)
	assert.Equal(t, hex.EncodeToString(want[:]), got)
}

func TestHasherMissingFile(t *testing.T) {
	h, err := NewHasher(AlgoSHA1)
	require.NoError(t, err)
	_, err = h.Sum(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
