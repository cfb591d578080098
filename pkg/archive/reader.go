package archive

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Entry is one decoded archive entry.
type Entry struct {
	WrittenAt time.Time
	Record    Record
}

// Reader reads archive entries. Entries whose checksum or payload does not
// decode are counted in CorruptedEntries and skipped.
type Reader struct {
	in          *bufio.Reader
	compression Compression
	dec         *zstd.Decoder
	logger      zerolog.Logger

	// Metrics
	TotalEntries     int64
	TotalBytes       int64
	CorruptedEntries int64
}

// NewReader reads and checks the file header.
func NewReader(r io.Reader, logger zerolog.Logger) (*Reader, error) {
	ar := &Reader{
		in:     bufio.NewReader(r),
		logger: logger.With().Str("component", "archive-reader").Logger(),
	}

	header := make([]byte, FileHeaderSize)
	if _, err := io.ReadFull(ar.in, header); err != nil {
		return nil, fmt.Errorf("%w: header too short", ErrBadMagic)
	}
	if !bytes.Equal(header[0:4], Magic) {
		return nil, ErrBadMagic
	}

	version := binary.BigEndian.Uint16(header[4:6])
	if version != Version {
		ar.logger.Warn().
			Uint16("file_version", version).
			Uint16("expected_version", Version).
			Msg("Archive version mismatch")
	}
	if header[6] != ChecksumCRC32 {
		return nil, fmt.Errorf("unsupported checksum type %d", header[6])
	}

	ar.compression = Compression(header[7])
	switch ar.compression {
	case CompressionNone:
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		ar.dec = dec
	default:
		return nil, fmt.Errorf("unsupported compression %s", ar.compression)
	}
	ar.TotalBytes = FileHeaderSize
	return ar, nil
}

// Compression reports the compression recorded in the file header.
func (r *Reader) Compression() Compression { return r.compression }

// Next returns the next readable entry, or io.EOF at the end of the stream.
// A truncated trailing entry is counted as corrupted and ends the stream.
func (r *Reader) Next() (Entry, error) {
	for {
		entry, err := r.readEntry()
		if err == nil {
			r.TotalEntries++
			return entry, nil
		}
		if errors.Is(err, io.EOF) {
			return Entry{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, ErrPayloadTooLarge) {
			r.CorruptedEntries++
			r.logger.Error().Err(err).Msg("Archive ends with an unreadable entry")
			return Entry{}, io.EOF
		}
		r.CorruptedEntries++
		r.logger.Error().Err(err).Msg("Skipping corrupted archive entry")
	}
}

// ReadAll reads every remaining entry.
func (r *Reader) ReadAll() ([]Entry, error) {
	var entries []Entry
	for {
		entry, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
	}

	r.logger.Debug().
		Int64("entries", r.TotalEntries).
		Int64("bytes", r.TotalBytes).
		Int64("corrupted", r.CorruptedEntries).
		Msg("Archive read complete")
	return entries, nil
}

func (r *Reader) readEntry() (Entry, error) {
	var header [EntryHeaderSize]byte
	if _, err := io.ReadFull(r.in, header[:]); err != nil {
		return Entry{}, err
	}

	payloadLen := binary.BigEndian.Uint32(header[0:4])
	writtenUS := binary.BigEndian.Uint64(header[4:12])
	expected := binary.BigEndian.Uint32(header[12:16])
	if payloadLen > MaxPayloadSize {
		return Entry{}, fmt.Errorf("%w: declared size %d", ErrPayloadTooLarge, payloadLen)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r.in, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Entry{}, fmt.Errorf("failed to read payload: %w", err)
	}
	r.TotalBytes += int64(EntryHeaderSize) + int64(payloadLen)

	if actual := crc32.ChecksumIEEE(payload); actual != expected {
		return Entry{}, fmt.Errorf("%w: expected %d, got %d", ErrChecksum, expected, actual)
	}

	if r.dec != nil {
		var err error
		payload, err = r.dec.DecodeAll(payload, nil)
		if err != nil {
			return Entry{}, fmt.Errorf("failed to decompress entry: %w", err)
		}
	}

	entry := Entry{WrittenAt: time.UnixMicro(int64(writtenUS)).UTC()}
	if err := msgpack.Unmarshal(payload, &entry.Record); err != nil {
		return Entry{}, fmt.Errorf("failed to deserialize entry: %w", err)
	}
	return entry, nil
}

// Close releases the decoder.
func (r *Reader) Close() {
	if r.dec != nil {
		r.dec.Close()
	}
}
