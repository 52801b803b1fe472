package tty

import (
	"bytes"
	"strings"
	"testing"
)

func TestLineDisciplineEditing(t *testing.T) {
	var echo bytes.Buffer
	l := NewLineDiscipline(&echo)

	for _, ch := range []byte("lx\bs\x01") {
		l.Input(ch)
	}

	if got := string(l.Pending()); got != "ls" {
		t.Fatalf("expected pending input %q; got %q", "ls", got)
	}

	if exp := "lx\bs"; echo.String() != exp {
		t.Fatalf("expected echo %q; got %q", exp, echo.String())
	}

	// Backspaces past the start of the line are ignored and not echoed.
	l.Input('\b')
	l.Input('\b')
	l.Input('\b')
	if len(l.Pending()) != 0 || echo.Len() != 6 {
		t.Fatalf("expected extra backspaces to be ignored; pending %q, echo %q", l.Pending(), echo.String())
	}
}

func TestLineDisciplineRead(t *testing.T) {
	defer func(orig func()) { waitFn = orig }(waitFn)

	l := NewLineDiscipline(nil)

	// The line is committed while the reader waits.
	var waits int
	waitFn = func() {
		waits++
		for _, ch := range []byte("cat frame0.txt\r") {
			l.Input(ch)
		}
	}

	buf := make([]byte, 64)
	n := l.Read(buf)
	if exp := "cat frame0.txt\n"; string(buf[:n]) != exp {
		t.Fatalf("expected to read %q; got %q", exp, buf[:n])
	}

	if waits != 1 || l.Ready() {
		t.Fatalf("expected one wait and the line to be consumed; waits %d", waits)
	}

	t.Run("short read discards the rest of the line", func(t *testing.T) {
		for _, ch := range []byte("hello\n") {
			l.Input(ch)
		}

		n := l.Read(buf[:3])
		if string(buf[:n]) != "hel" || l.Ready() {
			t.Fatalf("expected a 3 byte read of %q; got %q", "hel", buf[:n])
		}
	})
}

func TestLineDisciplineOverflow(t *testing.T) {
	l := NewLineDiscipline(nil)

	for i := 0; i < 2*LineSize; i++ {
		l.Input('a')
	}

	if len(l.Pending()) != LineSize-1 {
		t.Fatalf("expected the buffer to hold %d characters; got %d", LineSize-1, len(l.Pending()))
	}

	l.Input('\n')

	buf := make([]byte, 2*LineSize)
	n := l.Read(buf)
	if exp := strings.Repeat("a", LineSize-1) + "\n"; string(buf[:n]) != exp {
		t.Fatalf("expected a full line of %d bytes; got %d", LineSize, n)
	}

	l.Input('b')
	l.Reset()
	if len(l.Pending()) != 0 || l.Ready() {
		t.Fatal("expected Reset to discard all input")
	}
}
