package record

import (
	"errors"
	"strings"
	"testing"
)

// collect copies every record out of r, since yielded payloads alias the
// reader's scratch buffer.
func collect(t *testing.T, r *Reader) []Record {
	t.Helper()
	var out []Record
	for rec, err := range r.Iter() {
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		rec.Data = append([]byte(nil), rec.Data...)
		out = append(out, rec)
	}
	return out
}

func TestReaderSplitsOnNewline(t *testing.T) {
	r := NewReader('\n', strings.NewReader("banana\napple\ncherry\n"))
	recs := collect(t, r)

	want := []string{"banana", "apple", "cherry"}
	if len(recs) != len(want) {
		t.Fatalf("got %d records, want %d", len(recs), len(want))
	}
	for i, rec := range recs {
		if string(rec.Data) != want[i] {
			t.Errorf("record %d = %q, want %q", i, rec.Data, want[i])
		}
		if rec.Index != uint64(i) {
			t.Errorf("record %d index = %d", i, rec.Index)
		}
		if !rec.HadTerminator {
			t.Errorf("record %d missing terminator flag", i)
		}
	}
}

func TestReaderFinalRecordWithoutTerminator(t *testing.T) {
	r := NewReader('\n', strings.NewReader("one\ntwo"))
	recs := collect(t, r)

	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if string(recs[1].Data) != "two" {
		t.Errorf("last record = %q, want %q", recs[1].Data, "two")
	}
	if recs[1].HadTerminator {
		t.Error("final unterminated record flagged as terminated")
	}
	if !recs[0].HadTerminator {
		t.Error("first record should be flagged as terminated")
	}
}

func TestReaderEmptyRecords(t *testing.T) {
	r := NewReader('\n', strings.NewReader("\n\na\n"))
	recs := collect(t, r)

	want := []string{"", "", "a"}
	if len(recs) != len(want) {
		t.Fatalf("got %d records, want %d", len(recs), len(want))
	}
	for i, rec := range recs {
		if string(rec.Data) != want[i] {
			t.Errorf("record %d = %q, want %q", i, rec.Data, want[i])
		}
	}
}

func TestReaderEmptyInput(t *testing.T) {
	r := NewReader('\n', strings.NewReader(""))
	recs := collect(t, r)
	if len(recs) != 0 {
		t.Fatalf("got %d records from empty input, want 0", len(recs))
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}

func TestReaderZeroTerminated(t *testing.T) {
	r := NewReader(0, strings.NewReader("b\x00a\x00line\nwith\nnewlines\x00"))
	recs := collect(t, r)

	want := []string{"b", "a", "line\nwith\nnewlines"}
	if len(recs) != len(want) {
		t.Fatalf("got %d records, want %d", len(recs), len(want))
	}
	for i, rec := range recs {
		if string(rec.Data) != want[i] {
			t.Errorf("record %d = %q, want %q", i, rec.Data, want[i])
		}
	}
}

func TestReaderMultipleSources(t *testing.T) {
	// Sources concatenate; indices keep counting across the boundary. A
	// source ending without a terminator glues onto the next source's first
	// bytes, matching plain byte concatenation.
	r := NewReader('\n',
		strings.NewReader("a\nb"),
		strings.NewReader("c\nd\n"),
	)
	recs := collect(t, r)

	want := []string{"a", "bc", "d"}
	if len(recs) != len(want) {
		t.Fatalf("got %d records, want %d", len(recs), len(want))
	}
	for i, rec := range recs {
		if string(rec.Data) != want[i] {
			t.Errorf("record %d = %q, want %q", i, rec.Data, want[i])
		}
		if rec.Index != uint64(i) {
			t.Errorf("record %d index = %d", i, rec.Index)
		}
	}
}

func TestReaderLongRecord(t *testing.T) {
	// Longer than the internal buffer, forcing the ErrBufferFull path.
	long := strings.Repeat("x", 200*1024)
	r := NewReader('\n', strings.NewReader("a\n"+long+"\nb\n"))
	recs := collect(t, r)

	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	if string(recs[1].Data) != long {
		t.Errorf("long record corrupted: got %d bytes, want %d", len(recs[1].Data), len(long))
	}
}

type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.data) > 0 {
		n := copy(p, f.data)
		f.data = f.data[n:]
		return n, nil
	}
	return 0, f.err
}

func TestReaderPropagatesIOError(t *testing.T) {
	ioErr := errors.New("disk gone")
	r := NewReader('\n', &failingReader{data: []byte("ok\npartial"), err: ioErr})

	var got error
	var n int
	for rec, err := range r.Iter() {
		if err != nil {
			got = err
			break
		}
		_ = rec
		n++
	}
	if n != 1 {
		t.Fatalf("read %d records before error, want 1", n)
	}
	if !errors.Is(got, ioErr) {
		t.Fatalf("error = %v, want wrapped %v", got, ioErr)
	}
}

func TestReaderEarlyBreak(t *testing.T) {
	r := NewReader('\n', strings.NewReader("a\nb\nc\n"))
	for range r.Iter() {
		break
	}
	if r.Count() != 1 {
		t.Errorf("Count() after one step = %d, want 1", r.Count())
	}
}
