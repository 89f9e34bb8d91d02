package derivation

import (
	"encoding/json"

	"github.com/klauspost/compress/zstd"
)

// CompressedSnapshot holds a JSON-encoded derivation (e.g. a sorted or
// grouped snapshot of a source list) zstd-compressed in memory, for
// large cached derivations where the LRU entry's resident size
// matters more than decode latency.
type CompressedSnapshot struct {
	data []byte
}

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	encoder, _ = zstd.NewWriter(nil)
	decoder, _ = zstd.NewReader(nil)
}

// CompressSnapshot JSON-encodes value and compresses the result.
func CompressSnapshot(value any) (*CompressedSnapshot, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return &CompressedSnapshot{data: encoder.EncodeAll(raw, nil)}, nil
}

// Decode decompresses the snapshot and unmarshals it into out.
func (s *CompressedSnapshot) Decode(out any) error {
	raw, err := decoder.DecodeAll(s.data, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Size returns the compressed byte length.
func (s *CompressedSnapshot) Size() int {
	return len(s.data)
}
