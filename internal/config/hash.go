package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Hash computes a content hash of the fully resolved configuration (spec
// §3 "compute and record the configuration hash"), for the run context's
// ConfigHash field. encoding/json sorts map keys alphabetically when
// marshaling, so this is deterministic regardless of Sources map iteration
// order.
func (c *Config) Hash() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("config: hash: %w", err)
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:]), nil
}
