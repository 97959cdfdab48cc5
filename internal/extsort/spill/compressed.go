package spill

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// compressedArena wraps another arena so that segment contents are zstd
// compressed on the way to storage.
type compressedArena struct {
	base Arena
}

// NewCompressedArena returns an Arena whose segments transparently
// compress their contents over base.
func NewCompressedArena(base Arena) Arena {
	return &compressedArena{base: base}
}

var _ Arena = (*compressedArena)(nil)

func (a *compressedArena) New() (Segment, error) {
	seg, err := a.base.New()
	if err != nil {
		return nil, err
	}
	return &compressedSegment{base: seg}, nil
}

func (a *compressedArena) Release() error {
	return a.base.Release()
}

type compressedSegment struct {
	base Segment
}

func (s *compressedSegment) Create() (io.WriteCloser, error) {
	w, err := s.base.Create()
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(w,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}
	return &closeBoth{primary: zw, then: w}, nil
}

func (s *compressedSegment) Open() (io.ReadCloser, error) {
	r, err := s.base.Open()
	if err != nil {
		return nil, err
	}
	zr, err := zstd.NewReader(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	return &closeForwarder{Reader: zr, close: func() error {
		zr.Close()
		return r.Close()
	}}, nil
}

// closeBoth closes the compressor, then the underlying segment writer.
type closeBoth struct {
	primary io.WriteCloser
	then    io.Closer
}

func (c *closeBoth) Write(p []byte) (int, error) { return c.primary.Write(p) }

func (c *closeBoth) Close() error {
	err := c.primary.Close()
	if cerr := c.then.Close(); err == nil {
		err = cerr
	}
	return err
}

// closeForwarder routes Close through a custom func.
type closeForwarder struct {
	io.Reader
	close func() error
}

func (c *closeForwarder) Close() error { return c.close() }
