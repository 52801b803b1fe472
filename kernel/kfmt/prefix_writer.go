package kfmt

import "io"

// PrefixWriter is an io.Writer that wraps another io.Writer and injects a
// prefix at the beginning of each line.
type PrefixWriter struct {
	// A writer where all writes get sent to.
	Sink io.Writer

	// The prefix injected at the beginning of each line.
	Prefix []byte

	// midLine is set once some bytes of the current line have been
	// forwarded to Sink.
	midLine bool
}

// Write forwards p to Sink, emitting Prefix before the first byte of every
// line. The injected prefix is not included in the returned byte count.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var written int

	for len(p) != 0 {
		if !w.midLine {
			w.Sink.Write(w.Prefix)
			w.midLine = true
		}

		end := len(p)
		for i, b := range p {
			if b == '\n' {
				end = i + 1
				w.midLine = false
				break
			}
		}

		n, err := w.Sink.Write(p[:end])
		written += n
		if err != nil {
			return written, err
		}
		p = p[end:]
	}

	return written, nil
}
