package shared

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// MD5SumShort returns the first n hex characters of the MD5 digest of the
// file at path. Used to disambiguate cache filenames that may collide
// across sources.
func MD5SumShort(path string, n int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	sum := hex.EncodeToString(h.Sum(nil))
	if n > 0 && n < len(sum) {
		sum = sum[:n]
	}
	return sum, nil
}
