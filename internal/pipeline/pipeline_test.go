package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"recsort/internal/config"
	"recsort/internal/record"
)

func mustKey(t *testing.T, def string) config.KeySpec {
	t.Helper()
	spec, err := config.ParseKey(def)
	require.NoError(t, err)
	return spec
}

func runSort(t *testing.T, cfg *config.Config, input string, opts ...Option) string {
	t.Helper()
	var out bytes.Buffer
	err := Run(cfg, []io.Reader{strings.NewReader(input)}, &out, opts...)
	require.NoError(t, err)
	return out.String()
}

func TestRunDefault(t *testing.T) {
	got := runSort(t, &config.Config{}, "c\nb\na\n")
	require.Equal(t, "a\nb\nc\n", got)
}

func TestRunAddsMissingTerminator(t *testing.T) {
	got := runSort(t, &config.Config{}, "b\na")
	require.Equal(t, "a\nb\n", got)
}

func TestRunNumeric(t *testing.T) {
	got := runSort(t, &config.Config{Numeric: true}, "10\n2\n1\n")
	require.Equal(t, "1\n2\n10\n", got)
}

func TestRunReverse(t *testing.T) {
	got := runSort(t, &config.Config{Reverse: true}, "a\nc\nb\n")
	require.Equal(t, "c\nb\na\n", got)
}

func TestRunKeyedNumeric(t *testing.T) {
	cfg := &config.Config{Keys: []config.KeySpec{mustKey(t, "2,2n")}}
	got := runSort(t, cfg, "x 3\ny 1\nz 2\n")
	require.Equal(t, "y 1\nz 2\nx 3\n", got)
}

func TestRunStability(t *testing.T) {
	// Equal keys keep input order under -s.
	cfg := &config.Config{Stable: true, Keys: []config.KeySpec{mustKey(t, "2,2")}}
	got := runSort(t, cfg, "x 5\ny 5\nw 5\n")
	require.Equal(t, "x 5\ny 5\nw 5\n", got)
}

func TestRunUnique(t *testing.T) {
	got := runSort(t, &config.Config{Unique: true}, "a\nb\na\nb\nc\n")
	require.Equal(t, "a\nb\nc\n", got)
}

func TestRunUniqueByKey(t *testing.T) {
	// Records equal under the key collapse to the first in input order,
	// even when their full bytes differ.
	cfg := &config.Config{Unique: true, Keys: []config.KeySpec{mustKey(t, "2,2")}}
	got := runSort(t, cfg, "bbb x\naaa x\nccc y\n")
	require.Equal(t, "bbb x\nccc y\n", got)
}

func TestRunZeroTerminated(t *testing.T) {
	got := runSort(t, &config.Config{ZeroTerminated: true}, "b\nx\x00a\x00")
	require.Equal(t, "a\x00b\nx\x00", got)
}

func TestRunEmptyInput(t *testing.T) {
	got := runSort(t, &config.Config{}, "")
	require.Equal(t, "", got)
}

func TestRunEmptyRecords(t *testing.T) {
	got := runSort(t, &config.Config{}, "b\n\na\n\n")
	require.Equal(t, "\n\na\nb\n", got)
}

func TestRunMultipleSources(t *testing.T) {
	var out bytes.Buffer
	err := Run(&config.Config{},
		[]io.Reader{strings.NewReader("c\n"), strings.NewReader("a\nb\n")},
		&out)
	require.NoError(t, err)
	require.Equal(t, "a\nb\nc\n", out.String())
}

func TestRunFieldSeparator(t *testing.T) {
	cfg := &config.Config{
		FieldSep:    ':',
		HasFieldSep: true,
		Keys:        []config.KeySpec{mustKey(t, "2,2")},
	}
	got := runSort(t, cfg, "x:c\ny:a\nz:b\n")
	require.Equal(t, "y:a\nz:b\nx:c\n", got)
}

func TestRunFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	cfg := &config.Config{Output: path}

	var stdout bytes.Buffer
	err := Run(cfg, []io.Reader{strings.NewReader("b\na\n")}, &stdout)
	require.NoError(t, err)

	require.Zero(t, stdout.Len(), "nothing should reach stdout with -o")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "a\nb\n", string(data))
}

func TestRunOutputIsInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("c\na\nb\n"), 0o644))

	src, err := os.Open(path)
	require.NoError(t, err)
	defer src.Close()

	cfg := &config.Config{Output: path}
	require.NoError(t, Run(cfg, []io.Reader{src}, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "a\nb\nc\n", string(data))
}

func TestRunSpilledMatchesResident(t *testing.T) {
	// A tiny memory budget forces chunking and merge; the result must be
	// byte-identical to the in-memory path.
	rng := rand.New(rand.NewSource(7))
	var in strings.Builder
	for i := 0; i < 2000; i++ {
		fmt.Fprintf(&in, "%08x %d\n", rng.Uint32(), rng.Intn(1000))
	}
	input := in.String()

	cfg := &config.Config{Keys: []config.KeySpec{mustKey(t, "2,2n")}}
	resident := runSort(t, cfg, input)
	spilled := runSort(t, cfg, input, WithMemoryLimit(2048))
	require.Equal(t, resident, spilled)
}

func TestRunIdempotent(t *testing.T) {
	cfg := &config.Config{}
	once := runSort(t, cfg, "pear\napple\nquince\nfig\n")
	twice := runSort(t, cfg, once)
	require.Equal(t, once, twice)
}

func TestRunObserver(t *testing.T) {
	var seen []string
	obs := WithRecordObserver(func(rec record.Record) {
		seen = append(seen, string(rec.Data))
	})
	runSort(t, &config.Config{}, "b\na\n", obs)
	require.Equal(t, []string{"b", "a"}, seen, "observer sees records in input order")
}

func TestRunReadError(t *testing.T) {
	var out bytes.Buffer
	err := Run(&config.Config{}, []io.Reader{&brokenReader{}}, &out)
	require.Error(t, err)
	require.Zero(t, out.Len())
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("device failure")
}
