package main

import (
	"bufio"
	"bytes"
	"io"

	"recsort/internal/config"
	"recsort/internal/key"
	"recsort/internal/record"
)

// annotator prints each record followed by one underscore line per
// sub-key marking the bytes that key covers, in the style of
// sort --debug.
type annotator struct {
	bw *bufio.Writer
	ex *key.Extractor
}

func newAnnotator(dst io.Writer, cfg *config.Config) *annotator {
	return &annotator{
		bw: bufio.NewWriter(dst),
		ex: key.NewExtractor(cfg),
	}
}

func (a *annotator) annotate(rec record.Record) {
	a.bw.Write(rec.Data)
	a.bw.WriteByte('\n')

	for _, r := range a.ex.Ranges(rec.Data) {
		if r.Start >= r.End {
			a.bw.WriteString("^ no match for key\n")
			continue
		}
		a.bw.Write(bytes.Repeat([]byte{' '}, r.Start))
		a.bw.Write(bytes.Repeat([]byte{'_'}, r.End-r.Start))
		a.bw.WriteByte('\n')
	}
	a.bw.Flush()
}
