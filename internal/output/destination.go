package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Destination is where sorted output lands. File destinations are staged
// in a same-directory temp file and renamed into place by Commit, so a
// destination that is also an input source is never truncated before the
// input has been fully consumed. Abort discards the staged data.
type Destination struct {
	w    io.Writer
	tmp  *os.File
	path string
}

// OpenDestination prepares the sink for path. Empty path or "-" selects
// stdout (passed in as stdout so tests can substitute it).
func OpenDestination(path string, stdout io.Writer) (*Destination, error) {
	if path == "" || path == "-" {
		return &Destination{w: stdout}, nil
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".recsort-*")
	if err != nil {
		return nil, fmt.Errorf("create temp output in %s: %w", dir, err)
	}
	// CreateTemp defaults to 0600; the final file should look like a
	// regular created file.
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("chmod temp output: %w", err)
	}
	return &Destination{w: tmp, tmp: tmp, path: path}, nil
}

// Writer returns the sink to write records through.
func (d *Destination) Writer() io.Writer {
	return d.w
}

// Commit finalizes the destination: for files, close the temp file and
// atomically replace the target path.
func (d *Destination) Commit() error {
	if d.tmp == nil {
		return nil
	}
	if err := d.tmp.Close(); err != nil {
		os.Remove(d.tmp.Name())
		return fmt.Errorf("close temp output: %w", err)
	}
	if err := os.Rename(d.tmp.Name(), d.path); err != nil {
		os.Remove(d.tmp.Name())
		return fmt.Errorf("replace %s: %w", d.path, err)
	}
	d.tmp = nil
	return nil
}

// Abort removes any staged temp file. Safe to call after Commit.
func (d *Destination) Abort() {
	if d.tmp == nil {
		return
	}
	d.tmp.Close()
	os.Remove(d.tmp.Name())
	d.tmp = nil
}
