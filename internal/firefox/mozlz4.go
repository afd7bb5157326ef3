package firefox

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// mozlz4 header: 8-byte magic "mozLz40\x00"
var mozLz4Magic = []byte("mozLz40\x00")

const mozLz4HeaderSize = 12 // 8 magic + 4 size

// DecompressMozLz4 decompresses data in Mozilla's mozlz4 format.
// The format is: 8-byte magic "mozLz40\x00" + 4-byte LE uint32 uncompressed size + lz4 block data.
func DecompressMozLz4(data []byte) ([]byte, error) {
	if len(data) < mozLz4HeaderSize {
		return nil, fmt.Errorf("mozlz4: data too short (%d bytes)", len(data))
	}
	if !bytes.Equal(data[:len(mozLz4Magic)], mozLz4Magic) {
		return nil, fmt.Errorf("mozlz4: invalid header magic")
	}

	size := binary.LittleEndian.Uint32(data[8:mozLz4HeaderSize])
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(data[mozLz4HeaderSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: decompress failed: %w", err)
	}
	return dst[:n], nil
}

// CompressMozLz4 encodes data in the mozlz4 format Firefox reads.
func CompressMozLz4(data []byte) ([]byte, error) {
	out := make([]byte, mozLz4HeaderSize+lz4.CompressBlockBound(len(data)))
	copy(out, mozLz4Magic)
	binary.LittleEndian.PutUint32(out[8:mozLz4HeaderSize], uint32(len(data)))
	if len(data) == 0 {
		return out[:mozLz4HeaderSize], nil
	}

	var c lz4.Compressor
	n, err := c.CompressBlock(data, out[mozLz4HeaderSize:])
	if err != nil {
		return nil, fmt.Errorf("mozlz4: compress failed: %w", err)
	}
	return out[:mozLz4HeaderSize+n], nil
}
