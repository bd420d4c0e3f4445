package sim

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Digest hashes the canonical encoding of the full state. Two runs that
// agree on every entity, order and battle produce the same digest.
func (s *Simulation) Digest() (uint64, error) {
	raw, err := json.Marshal(s.Capture())
	if err != nil {
		return 0, fmt.Errorf("digest: %w", err)
	}
	return xxhash.Sum64(raw), nil
}
