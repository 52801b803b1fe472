package kfmt

import "io"

// maxBufSize defines the buffer size for formatting numbers.
const maxBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	// earlyPrintBuffer is a ring buffer that stores Printf output before the
	// terminals are initialized.
	earlyPrintBuffer ringBuffer

	// outputSink is the io.Writer where Printf sends its output. If set to
	// nil, the output is redirected to the earlyPrintBuffer.
	outputSink io.Writer

	// out is shared by all print calls. The kernel runs on a single CPU and
	// print calls never yield, so no locking is required.
	out printer
)

// SetOutputSink sets the default target for calls to Printf to w and copies
// any data accumulated in the earlyPrintBuffer to it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// GetOutputSink returns the default target for calls to Printf.
func GetOutputSink() io.Writer {
	return outputSink
}

// Printf provides a minimal Printf implementation that does not allocate
// memory. It supports the following subset of formatting verbs:
//
// Strings:
//
//	%s the uninterpreted bytes of the string or byte slice
//	%c a single byte
//
// Integers:
//
//	%o base 8
//	%d base 10
//	%x base 16, with lower-case letters for a-f
//
// Booleans:
//
//	%t "true" or "false"
//
// Width is specified by an optional decimal number immediately preceding the
// verb. Strings and base-10 integers are left-padded with spaces while base-8
// and base-16 integers are left-padded with zeroes.
//
// The output of Printf is written to the active output sink. If no sink is
// available, then the output is buffered into a ring-buffer and gets flushed
// by the next call to SetOutputSink.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves exactly like Printf but it writes the formatted output to
// the specified io.Writer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	prev := out.w
	out.w = w
	out.format(format, args)
	out.w = prev
}

// printer holds the scratch buffers used while formatting.
type printer struct {
	w      io.Writer
	one    [1]byte
	numBuf [maxBufSize + 1]byte
}

func (p *printer) format(format string, args []interface{}) {
	var (
		argIndex int
		padLen   int
		fmtLen   = len(format)
	)

	for i := 0; i < fmtLen; i++ {
		if format[i] != '%' {
			p.writeByte(format[i])
			continue
		}

		padLen = 0
		for i++; i < fmtLen && format[i] >= '0' && format[i] <= '9'; i++ {
			padLen = padLen*10 + int(format[i]-'0')
		}

		if i == fmtLen {
			p.write(errNoVerb)
			break
		}

		verb := format[i]
		switch verb {
		case '%':
			p.writeByte('%')
			continue
		case 'd', 'x', 'o', 's', 't', 'c':
		default:
			p.write(errNoVerb)
			continue
		}

		if argIndex >= len(args) {
			p.write(errMissingArg)
			continue
		}

		arg := args[argIndex]
		argIndex++

		switch verb {
		case 'o':
			p.fmtInt(arg, 8, padLen)
		case 'd':
			p.fmtInt(arg, 10, padLen)
		case 'x':
			p.fmtInt(arg, 16, padLen)
		case 's':
			p.fmtString(arg, padLen)
		case 'c':
			p.fmtChar(arg)
		case 't':
			p.fmtBool(arg)
		}
	}

	for ; argIndex < len(args); argIndex++ {
		p.write(errExtraArg)
	}
}

func (p *printer) fmtBool(v interface{}) {
	bVal, ok := v.(bool)
	switch {
	case !ok:
		p.write(errWrongArgType)
	case bVal:
		p.write(trueValue)
	default:
		p.write(falseValue)
	}
}

func (p *printer) fmtChar(v interface{}) {
	switch ch := v.(type) {
	case byte:
		p.writeByte(ch)
	case rune:
		p.writeByte(byte(ch))
	default:
		p.write(errWrongArgType)
	}
}

func (p *printer) fmtString(v interface{}, padLen int) {
	switch castedVal := v.(type) {
	case string:
		p.repeat(' ', padLen-len(castedVal))
		for i := 0; i < len(castedVal); i++ {
			p.writeByte(castedVal[i])
		}
	case []byte:
		p.repeat(' ', padLen-len(castedVal))
		p.write(castedVal)
	default:
		p.write(errWrongArgType)
	}
}

func (p *printer) repeat(ch byte, count int) {
	for ; count > 0; count-- {
		p.writeByte(ch)
	}
}

// fmtInt prints out a formatted version of v in the requested base, applying
// the padding specified by padLen.
func (p *printer) fmtInt(v interface{}, base uint64, padLen int) {
	var (
		uval     uint64
		negative bool
		padCh    byte = '0'
	)

	if padLen >= maxBufSize {
		padLen = maxBufSize - 1
	}
	if base == 10 {
		padCh = ' '
	}

	switch val := v.(type) {
	case uint8:
		uval = uint64(val)
	case uint16:
		uval = uint64(val)
	case uint32:
		uval = uint64(val)
	case uint64:
		uval = val
	case uint:
		uval = uint64(val)
	case uintptr:
		uval = uint64(val)
	case int8:
		uval, negative = abs(int64(val))
	case int16:
		uval, negative = abs(int64(val))
	case int32:
		uval, negative = abs(int64(val))
	case int64:
		uval, negative = abs(val)
	case int:
		uval, negative = abs(int64(val))
	default:
		p.write(errWrongArgType)
		return
	}

	// Digits are emitted right to left.
	end := len(p.numBuf)
	pos := end
	for {
		pos--
		digit := byte(uval % base)
		if digit < 10 {
			p.numBuf[pos] = '0' + digit
		} else {
			p.numBuf[pos] = 'a' + digit - 10
		}

		if uval /= base; uval == 0 {
			break
		}
	}

	width := end - pos
	if negative {
		width++
	}

	// Zero padding goes between the sign and the digits; space padding goes
	// before the sign.
	if padCh == '0' {
		for ; width < padLen; width++ {
			pos--
			p.numBuf[pos] = '0'
		}
	}
	if negative {
		pos--
		p.numBuf[pos] = '-'
	}
	for ; width < padLen && pos > 0; width++ {
		pos--
		p.numBuf[pos] = ' '
	}

	p.write(p.numBuf[pos:end])
}

func abs(v int64) (uint64, bool) {
	if v < 0 {
		return uint64(-v), true
	}
	return uint64(v), false
}

func (p *printer) writeByte(b byte) {
	p.one[0] = b
	p.write(p.one[:])
}

func (p *printer) write(b []byte) {
	if p.w != nil {
		p.w.Write(b)
		return
	}
	earlyPrintBuffer.Write(b)
}
