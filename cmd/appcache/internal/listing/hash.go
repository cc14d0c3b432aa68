package listing

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// Algorithm names a content digest.
type Algorithm string

const (
	// Blake3 is a 256-bit cryptographic digest. Collisions are not a
	// practical concern.
	Blake3 Algorithm = "blake3"

	// XXHash is a 64-bit non-cryptographic digest. It is much faster but
	// accidental collisions, while unlikely, are possible, and it offers no
	// protection against crafted inputs.
	XXHash Algorithm = "xxhash"
)

// ParseAlgorithm validates an algorithm name. An empty name selects Blake3.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case "", Blake3:
		return Blake3, nil
	case XXHash:
		return XXHash, nil
	default:
		return "", fmt.Errorf("unknown hash algorithm %q", name)
	}
}

func (a Algorithm) newHash() hash.Hash {
	if a == XXHash {
		return xxhash.New()
	}
	return blake3.New()
}

// HashFile computes the digest of file contents, returns hex string.
func HashFile(algo Algorithm, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := algo.newHash()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes computes the digest of data, returns hex string.
func HashBytes(algo Algorithm, data []byte) string {
	if algo == XXHash {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], xxhash.Sum64(data))
		return hex.EncodeToString(buf[:])
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
