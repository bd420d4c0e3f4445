package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/stellardominion/server/internal/world"
	"lukechampine.com/blake3"
)

var (
	// ErrCorrupt reports a payload whose checksum or encoding does not verify.
	ErrCorrupt = errors.New("save data corrupt")
	// ErrUnsupportedVersion reports a snapshot written by an incompatible layout.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	// ErrNoSave reports an empty slot.
	ErrNoSave = errors.New("no save in slot")
)

// Checksum is the blake3 digest stored next to every payload.
type Checksum [32]byte

// Encode serializes a snapshot as lz4-compressed JSON and returns the
// payload with its checksum. The checksum covers the compressed bytes.
func Encode(snap *world.Snapshot) ([]byte, Checksum, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, Checksum{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, Checksum{}, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, Checksum{}, fmt.Errorf("compress snapshot: %w", err)
	}
	payload := buf.Bytes()
	return payload, blake3.Sum256(payload), nil
}

// Decode verifies and unpacks a payload produced by Encode.
func Decode(payload []byte, sum Checksum) (*world.Snapshot, error) {
	if blake3.Sum256(payload) != sum {
		return nil, fmt.Errorf("verify checksum: %w", ErrCorrupt)
	}
	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(payload)))
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w: %v", ErrCorrupt, err)
	}
	var snap world.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w: %v", ErrCorrupt, err)
	}
	if snap.Version != world.SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d: %w", snap.Version, ErrUnsupportedVersion)
	}
	return &snap, nil
}

func checksumFrom(b []byte) (Checksum, error) {
	var sum Checksum
	if len(b) != len(sum) {
		return sum, fmt.Errorf("checksum length %d: %w", len(b), ErrCorrupt)
	}
	copy(sum[:], b)
	return sum, nil
}
