package archive

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/atwilso/tracktable/pkg/models"
)

// WriterConfig holds configuration for an archive writer
type WriterConfig struct {
	Compression Compression
	Logger      zerolog.Logger
}

// Writer appends trajectory records to an archive stream. It is not safe
// for concurrent use.
type Writer struct {
	out    *bufio.Writer
	cfg    WriterConfig
	enc    *zstd.Encoder
	logger zerolog.Logger
	now    func() time.Time

	TotalEntries int64
	TotalBytes   int64
}

// NewWriter writes the file header to w and returns a writer for entries.
func NewWriter(w io.Writer, cfg WriterConfig) (*Writer, error) {
	aw := &Writer{
		out:    bufio.NewWriter(w),
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "archive-writer").Logger(),
		now:    time.Now,
	}

	switch cfg.Compression {
	case CompressionNone:
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		aw.enc = enc
	default:
		return nil, fmt.Errorf("unsupported compression %s", cfg.Compression)
	}

	header := make([]byte, FileHeaderSize)
	copy(header[0:4], Magic)
	binary.BigEndian.PutUint16(header[4:6], Version)
	header[6] = ChecksumCRC32
	header[7] = byte(cfg.Compression)
	n, err := aw.out.Write(header)
	if err != nil {
		return nil, fmt.Errorf("failed to write archive header: %w", err)
	}
	aw.TotalBytes += int64(n)

	aw.logger.Debug().Str("compression", cfg.Compression.String()).Msg("Archive writer initialized")
	return aw, nil
}

// Append writes one record.
func (w *Writer) Append(rec Record) error {
	payload, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}
	if w.enc != nil {
		payload = w.enc.EncodeAll(payload, nil)
	}
	return w.AppendRaw(payload)
}

// AppendRaw writes an already encoded (and compressed, if the archive is)
// payload.
func (w *Writer) AppendRaw(payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}

	var header [EntryHeaderSize]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(len(payload)))
	binary.BigEndian.PutUint64(header[4:12], uint64(w.now().UnixMicro()))
	binary.BigEndian.PutUint32(header[12:16], crc32.ChecksumIEEE(payload))

	if _, err := w.out.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write entry header: %w", err)
	}
	if _, err := w.out.Write(payload); err != nil {
		return fmt.Errorf("failed to write entry payload: %w", err)
	}
	w.TotalEntries++
	w.TotalBytes += int64(EntryHeaderSize + len(payload))
	return nil
}

// WriteTrajectory appends t as one record.
func WriteTrajectory[P models.Point](w *Writer, t *models.Trajectory[P]) error {
	return w.Append(FromTrajectory(t))
}

// Flush writes buffered entries to the underlying writer.
func (w *Writer) Flush() error { return w.out.Flush() }

// Close flushes and releases the encoder. It does not close the underlying
// writer.
func (w *Writer) Close() error {
	err := w.out.Flush()
	if w.enc != nil {
		if cerr := w.enc.Close(); err == nil {
			err = cerr
		}
	}
	w.logger.Debug().
		Int64("entries", w.TotalEntries).
		Int64("bytes", w.TotalBytes).
		Msg("Archive writer closed")
	return err
}
