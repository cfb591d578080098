// Package archive stores trajectories in a framed binary file.
//
// A file starts with an 8 byte header: magic "TRKA", a big endian uint16
// version, the checksum type and the compression type. Each entry that
// follows is
//
//	[length u32][written at, unix micros u64][crc32 u32][payload]
//
// where the payload is a msgpack encoded Record, zstd compressed when the
// header says so. The checksum covers the payload as stored.
package archive

import (
	"errors"
	"fmt"
	"strings"
)

// File format constants
var (
	Magic   = []byte{'T', 'R', 'K', 'A'}
	Version = uint16(0x0001)
)

const (
	ChecksumCRC32 = 0x01

	FileHeaderSize  = 8 // Magic(4) + Version(2) + ChecksumType(1) + Compression(1)
	EntryHeaderSize = 16

	// MaxPayloadSize bounds a single entry so a corrupt length cannot
	// trigger a huge allocation.
	MaxPayloadSize = 100 * 1024 * 1024
)

var (
	ErrBadMagic        = errors.New("not a trajectory archive")
	ErrChecksum        = errors.New("archive entry checksum mismatch")
	ErrPayloadTooLarge = errors.New("archive payload exceeds maximum allowed size")
)

// Compression is the payload compression recorded in the file header.
type Compression byte

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	}
	return fmt.Sprintf("compression(%d)", byte(c))
}

// ParseCompression accepts "none" (or "") and "zstd".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	}
	return 0, fmt.Errorf("unknown archive compression %q", s)
}
