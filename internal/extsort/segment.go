package extsort

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"recsort/internal/record"
)

// Segment wire format: a sequence of frames, one per record, followed by
// an end marker and an xxhash64 of everything before the marker.
//
//	frame:  u32 BE frame length | u64 BE original index | u8 flags | payload
//	end:    u32 BE 0xFFFFFFFF   | u64 BE xxhash64
//
// The checksum catches spill storage corruption at merge time instead of
// silently producing misordered output.
const (
	endMarker    = 0xFFFFFFFF
	frameHeader  = 9                // index + flags
	maxFrameSize = 1 << 30          // sanity bound; also keeps marker unambiguous
	flagHadTerm  = byte(1)
)

// ErrSegmentCorrupt reports a spill segment that failed framing or
// checksum validation. This indicates storage corruption or an internal
// defect, not a user error.
var ErrSegmentCorrupt = errors.New("spill segment corrupt")

type segmentWriter struct {
	w      *bufio.Writer
	digest *xxhash.Digest
	scratch [4 + frameHeader]byte
}

func newSegmentWriter(w io.Writer) *segmentWriter {
	return &segmentWriter{
		w:      bufio.NewWriterSize(w, 64*1024),
		digest: xxhash.New(),
	}
}

func (sw *segmentWriter) writeRecord(rec record.Record) error {
	frameLen := frameHeader + len(rec.Data)
	if frameLen > maxFrameSize {
		return fmt.Errorf("record %d exceeds max spill frame size (%d bytes)", rec.Index, len(rec.Data))
	}

	binary.BigEndian.PutUint32(sw.scratch[0:4], uint32(frameLen))
	binary.BigEndian.PutUint64(sw.scratch[4:12], rec.Index)
	sw.scratch[12] = 0
	if rec.HadTerminator {
		sw.scratch[12] = flagHadTerm
	}

	if _, err := sw.w.Write(sw.scratch[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	sw.digest.Write(sw.scratch[:])
	if _, err := sw.w.Write(rec.Data); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	sw.digest.Write(rec.Data)
	return nil
}

// finish writes the end marker and checksum and flushes.
func (sw *segmentWriter) finish() error {
	var tail [12]byte
	binary.BigEndian.PutUint32(tail[0:4], endMarker)
	binary.BigEndian.PutUint64(tail[4:12], sw.digest.Sum64())
	if _, err := sw.w.Write(tail[:]); err != nil {
		return fmt.Errorf("write segment trailer: %w", err)
	}
	if err := sw.w.Flush(); err != nil {
		return fmt.Errorf("flush segment: %w", err)
	}
	return nil
}

type segmentReader struct {
	br     *bufio.Reader
	digest *xxhash.Digest
	done   bool
}

func newSegmentReader(r io.Reader) *segmentReader {
	return &segmentReader{
		br:     bufio.NewReaderSize(r, 64*1024),
		digest: xxhash.New(),
	}
}

// next returns the following record, or io.EOF after the trailer has been
// read and its checksum verified. Each record's payload is freshly
// allocated and safe to retain.
func (sr *segmentReader) next() (record.Record, error) {
	if sr.done {
		return record.Record{}, io.EOF
	}

	var head [4]byte
	if _, err := io.ReadFull(sr.br, head[:]); err != nil {
		return record.Record{}, sr.readErr("frame header", err)
	}
	frameLen := binary.BigEndian.Uint32(head[:])

	if frameLen == endMarker {
		var sum [8]byte
		if _, err := io.ReadFull(sr.br, sum[:]); err != nil {
			return record.Record{}, sr.readErr("trailer", err)
		}
		sr.done = true
		if got, want := sr.digest.Sum64(), binary.BigEndian.Uint64(sum[:]); got != want {
			return record.Record{}, fmt.Errorf("%w: checksum mismatch (got %016x want %016x)", ErrSegmentCorrupt, got, want)
		}
		return record.Record{}, io.EOF
	}

	if frameLen < frameHeader || frameLen > maxFrameSize {
		return record.Record{}, fmt.Errorf("%w: invalid frame length %d", ErrSegmentCorrupt, frameLen)
	}

	frame := make([]byte, frameLen)
	if _, err := io.ReadFull(sr.br, frame); err != nil {
		return record.Record{}, sr.readErr("frame", err)
	}
	sr.digest.Write(head[:])
	sr.digest.Write(frame)

	return record.Record{
		Data:          frame[frameHeader:],
		Index:         binary.BigEndian.Uint64(frame[0:8]),
		HadTerminator: frame[8]&flagHadTerm != 0,
	}, nil
}

// readErr distinguishes a short segment (corruption) from a plain I/O
// failure of the underlying storage.
func (sr *segmentReader) readErr(what string, err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: truncated %s", ErrSegmentCorrupt, what)
	}
	return fmt.Errorf("read segment %s: %w", what, err)
}
