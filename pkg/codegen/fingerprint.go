package codegen

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// FingerprintFile returns the SHA256 of a file's content
func FingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
