// Package hashutil provides content hashing for drift detection and the
// content-addressed blob stores. Hashes are lowercase BLAKE3 hex digests.
package hashutil

import (
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// HashFile calculates the BLAKE3 digest of a file's content
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// HashContent calculates the BLAKE3 digest of a byte slice
func HashContent(content []byte) string {
	sum := blake3.Sum256(content)
	return fmt.Sprintf("%x", sum[:])
}
