package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// DomainKey separates cache keys from other hashes.
// The version suffix allows changing the key layout later.
const DomainKey = "rhl/cache-key/v1"

// KeyInput lists everything besides spliced sources that determines the
// output of a preprocessing run. Spliced sources are checked separately
// through the entry's dependencies.
type KeyInput struct {
	Source           string   `json:"source"`
	Definitions      []string `json:"definitions"`
	IncludeDirs      []string `json:"include_dirs"`
	MaxIncludeDepth  int      `json:"max_include_depth"`
	Polarity         string   `json:"polarity"`
	NormalizeUnicode bool     `json:"normalize_unicode"`
	Version          string   `json:"version"`
}

// Key computes the cache key for in.
// Definitions keep their order since a later definition overrides an earlier one.
func Key(in KeyInput) (string, error) {
	if in.Definitions == nil {
		in.Definitions = []string{}
	}
	if in.IncludeDirs == nil {
		in.IncludeDirs = []string{}
	}

	// encoding/json writes struct fields in declaration order.
	data, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("cache key: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainKey, data), nil
}

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
