// Package spill provides temporary storage for sorted chunks that cannot
// stay memory resident. An Arena owns a set of Segments; releasing the
// arena destroys every segment it handed out, on success and failure paths
// alike.
package spill

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// Segment is one spilled chunk's backing store. It is exclusively owned by
// the worker that writes it until merge time, when ownership transfers to
// the merge reader.
type Segment interface {
	Create() (io.WriteCloser, error)
	Open() (io.ReadCloser, error)
}

// Arena creates segments and releases all of their storage when done.
type Arena interface {
	New() (Segment, error)
	Release() error
}

// memArena keeps segments in process memory. Used when the data is small
// or in tests.
type memArena struct {
	mu   sync.Mutex
	segs []*memSegment
}

// NewMemoryArena returns an Arena backed by in-memory buffers.
func NewMemoryArena() Arena {
	return &memArena{}
}

func (a *memArena) New() (Segment, error) {
	s := &memSegment{}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.segs = append(a.segs, s)
	return s, nil
}

func (a *memArena) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.segs = nil
	return nil
}

type memSegment struct {
	data []byte
}

func (s *memSegment) Create() (io.WriteCloser, error) {
	s.data = s.data[:0]
	return nopWriteCloser{s}, nil
}

func (s *memSegment) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s *memSegment) Write(p []byte) (int, error) {
	s.data = append(s.data, p...)
	return len(p), nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// dirArena stores each segment as a numbered file under dir. Release
// removes the whole directory.
type dirArena struct {
	dir    string
	nextID atomic.Int64
}

// NewDirArena returns an Arena writing segment files under dir, creating
// it if needed.
func NewDirArena(dir string) (Arena, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spill dir: %w", err)
	}
	return &dirArena{dir: dir}, nil
}

// NewTempArena returns a dir arena under the system temp directory,
// compressed. The usual choice for production spills.
func NewTempArena() (Arena, error) {
	dir, err := os.MkdirTemp("", "recsort-spill-*")
	if err != nil {
		return nil, fmt.Errorf("create spill dir: %w", err)
	}
	base, err := NewDirArena(dir)
	if err != nil {
		return nil, err
	}
	return NewCompressedArena(base), nil
}

func (a *dirArena) New() (Segment, error) {
	id := a.nextID.Add(1)
	return &fileSegment{path: filepath.Join(a.dir, fmt.Sprintf("%04d.seg", id))}, nil
}

func (a *dirArena) Release() error {
	return os.RemoveAll(a.dir)
}

type fileSegment struct {
	path string
}

func (s *fileSegment) Create() (io.WriteCloser, error) {
	return os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
}

func (s *fileSegment) Open() (io.ReadCloser, error) {
	return os.Open(s.path)
}
