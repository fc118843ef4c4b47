package manifest

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"

	"github.com/pithecene-io/lapse/iox"
	"github.com/pithecene-io/lapse/types"
)

// gzipMagic is the two-byte gzip member header.
var gzipMagic = []byte{0x1f, 0x8b}

// IsGzip reports whether data starts with a gzip header.
func IsGzip(data []byte) bool {
	return bytes.HasPrefix(data, gzipMagic)
}

// Decode parses either serialized form into a raw manifest.
// Gzip input is detected by its magic bytes and decompressed first. A bare
// top-level array is treated as the image list.
func Decode(data []byte) (RawManifest, error) {
	if IsGzip(data) {
		plain, err := Gunzip(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
		}
		data = plain
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	switch v := doc.(type) {
	case map[string]any:
		return RawManifest(v), nil
	case []any:
		return RawManifest{"images": v}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected top-level %T", ErrInvalidManifest, doc)
	}
}

// Load decodes and canonicalizes a document. The document's own
// generated_at is kept when present.
func (c *Canonicalizer) Load(data []byte) (types.Manifest, error) {
	raw, err := Decode(data)
	if err != nil {
		return types.Manifest{}, err
	}
	m := c.Build(raw)
	if at, ok := raw.GeneratedAt(); ok {
		m.GeneratedAt = at
	}
	return m, nil
}

// EncodeVerbose renders the verbose form: two-space indented JSON with a
// trailing newline.
func EncodeVerbose(m types.Manifest) ([]byte, error) {
	data, err := json.MarshalIndent(ToVerbose(m), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode verbose manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// EncodeCompact renders the compact form as single-line JSON.
func EncodeCompact(m types.Manifest) ([]byte, error) {
	data, err := json.Marshal(ToCompact(m))
	if err != nil {
		return nil, fmt.Errorf("encode compact manifest: %w", err)
	}
	return data, nil
}

// Gzip compresses data at maximum compression.
func Gzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MaxInflatedBytes caps how large a compact manifest may inflate.
const MaxInflatedBytes = 512 << 20

// Gunzip decompresses a gzip stream of at most MaxInflatedBytes.
func Gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer iox.DiscardClose(zr)
	return iox.ReadAllLimit(zr, MaxInflatedBytes)
}
