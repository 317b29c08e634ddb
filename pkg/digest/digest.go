package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"
)

// HexLen is the length of an encoded digest.
const HexLen = 64

func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// File streams the file at path through sha256 and returns the lowercase
// hex digest. buf is an optional scratch buffer reused across calls when
// hashing many files; pass nil to allocate one.
func File(path string, buf []byte) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if buf == nil {
		buf = make([]byte, 1<<20)
	}
	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Equal compares two hex digests ignoring case.
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}

// ValidHex reports whether s looks like an encoded sha256 digest.
func ValidHex(s string) bool {
	if len(s) != HexLen {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
