package tty

import (
	"gopherix/kernel/cpu"
	"io"
)

// LineSize is the capacity of a line buffer. The last slot is reserved for
// the newline that commits the line.
const LineSize = 128

var waitFn = cpu.WaitForInterrupt

// LineDiscipline assembles keyboard input into lines. Characters are echoed
// to the terminal as they are typed; readers block until a line has been
// committed with enter.
type LineDiscipline struct {
	echo io.Writer

	buf [LineSize]byte
	n   int

	line    [LineSize]byte
	lineLen int
	ready   bool
}

// NewLineDiscipline creates a line discipline that echoes to echo.
func NewLineDiscipline(echo io.Writer) *LineDiscipline {
	return &LineDiscipline{echo: echo}
}

// Input processes a single typed character. Printable characters are
// appended while there is room, backspace removes the last character and
// enter commits the line.
func (l *LineDiscipline) Input(ch byte) {
	switch {
	case ch == '\b':
		if l.n == 0 {
			return
		}
		l.n--
	case ch == '\n' || ch == '\r':
		ch = '\n'
		l.buf[l.n] = ch
		l.lineLen = copy(l.line[:], l.buf[:l.n+1])
		l.ready = true
		l.n = 0
	case ch == '\t' || (ch >= ' ' && ch < 0x7f):
		if l.n == LineSize-1 {
			return
		}
		l.buf[l.n] = ch
		l.n++
	default:
		return
	}

	if l.echo != nil {
		l.echo.Write([]byte{ch})
	}
}

// Pending returns the characters typed since the last committed line.
func (l *LineDiscipline) Pending() []byte {
	return l.buf[:l.n]
}

// Ready returns true if a committed line is waiting to be read.
func (l *LineDiscipline) Ready() bool {
	return l.ready
}

// Read blocks until a line is committed and copies up to len(dst) bytes of
// it, newline included, into dst. Bytes that do not fit are discarded.
func (l *LineDiscipline) Read(dst []byte) int {
	for !l.ready {
		waitFn()
	}

	l.ready = false
	return copy(dst, l.line[:l.lineLen])
}

// Reset discards both the pending input and any committed line.
func (l *LineDiscipline) Reset() {
	l.n, l.lineLen, l.ready = 0, 0, false
}
