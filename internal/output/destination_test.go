package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestDestinationStdout(t *testing.T) {
	var buf bytes.Buffer
	for _, path := range []string{"", "-"} {
		d, err := OpenDestination(path, &buf)
		if err != nil {
			t.Fatalf("open %q: %v", path, err)
		}
		if d.Writer() != &buf {
			t.Errorf("path %q: expected stdout writer", path)
		}
		if err := d.Commit(); err != nil {
			t.Errorf("commit stdout: %v", err)
		}
		d.Abort()
	}
}

func TestDestinationFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	d, err := OpenDestination(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := d.Writer().Write([]byte("sorted\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Nothing visible at the target path until Commit.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("target exists before commit: %v", err)
	}

	if err := d.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "sorted\n" {
		t.Errorf("content = %q", got)
	}
	d.Abort() // safe after commit
}

func TestDestinationSameAsInput(t *testing.T) {
	// Writing to the path we are still reading from must not truncate the
	// source before the read finishes.
	path := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(path, []byte("b\na\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	d, err := OpenDestination(path, nil)
	if err != nil {
		t.Fatalf("open destination: %v", err)
	}
	defer d.Abort()

	// Source still fully readable after the destination is staged.
	got := make([]byte, 4)
	if _, err := src.Read(got); err != nil {
		t.Fatalf("read source: %v", err)
	}
	if string(got) != "b\na\n" {
		t.Fatalf("source content = %q, want intact input", got)
	}

	if _, err := d.Writer().Write([]byte("a\nb\n")); err != nil {
		t.Fatal(err)
	}
	if err := d.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	final, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(final) != "a\nb\n" {
		t.Errorf("final content = %q", final)
	}
}

func TestDestinationAbort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	d, err := OpenDestination(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Writer().Write([]byte("partial")); err != nil {
		t.Fatal(err)
	}
	d.Abort()

	// No target file and no leftover temp files.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("leftover files after abort: %v", entries)
	}
}

func TestDestinationCommitPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	d, err := OpenDestination(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Commit(); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o644 {
		t.Errorf("committed file mode = %o, want 644", perm)
	}
}
