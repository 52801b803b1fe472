package keyboard

// plainMap translates scancode set 1 make codes to ASCII with no modifiers.
var plainMap = [...]byte{
	0x02: '1', 0x03: '2', 0x04: '3', 0x05: '4', 0x06: '5',
	0x07: '6', 0x08: '7', 0x09: '8', 0x0a: '9', 0x0b: '0',
	0x0c: '-', 0x0d: '=', scBackspace: '\b', scTab: '\t',
	0x10: 'q', 0x11: 'w', 0x12: 'e', 0x13: 'r', 0x14: 't',
	0x15: 'y', 0x16: 'u', 0x17: 'i', 0x18: 'o', 0x19: 'p',
	0x1a: '[', 0x1b: ']', scEnter: '\n',
	0x1e: 'a', 0x1f: 's', 0x20: 'd', 0x21: 'f', 0x22: 'g',
	0x23: 'h', 0x24: 'j', 0x25: 'k', 0x26: 'l', 0x27: ';',
	0x28: '\'', 0x29: '`', 0x2b: '\\',
	0x2c: 'z', 0x2d: 'x', 0x2e: 'c', 0x2f: 'v', 0x30: 'b',
	0x31: 'n', 0x32: 'm', 0x33: ',', 0x34: '.', 0x35: '/',
	scSpace: ' ',
}

// shiftMap holds the shifted symbols of the non-letter keys.
var shiftMap = [len(plainMap)]byte{
	0x02: '!', 0x03: '@', 0x04: '#', 0x05: '$', 0x06: '%',
	0x07: '^', 0x08: '&', 0x09: '*', 0x0a: '(', 0x0b: ')',
	0x0c: '_', 0x0d: '+', scBackspace: '\b', scTab: '\t',
	0x1a: '{', 0x1b: '}', scEnter: '\n',
	0x27: ':', 0x28: '"', 0x29: '~', 0x2b: '|',
	0x33: '<', 0x34: '>', 0x35: '?',
	scSpace: ' ',
}

// Encode returns the scancode sequence that types text on a keyboard with
// no modifiers held. Characters without a key are skipped.
func Encode(text string) []byte {
	var out []byte
	for i := 0; i < len(text); i++ {
		sc, shifted, ok := lookup(text[i])
		if !ok {
			continue
		}

		if shifted {
			out = append(out, scLShift)
		}
		out = append(out, sc, sc|releaseBit)
		if shifted {
			out = append(out, scLShift|releaseBit)
		}
	}
	return out
}

// EncodeSwitch returns the scancode sequence for Alt+F<term+1>.
func EncodeSwitch(term int) []byte {
	fn := uint8(scF1 + term)
	return []byte{scLAlt, fn, fn | releaseBit, scLAlt | releaseBit}
}

// EncodeClear returns the scancode sequence for Ctrl+L.
func EncodeClear() []byte {
	return []byte{scLCtrl, scL, scL | releaseBit, scLCtrl | releaseBit}
}

func lookup(ch byte) (sc uint8, shifted, ok bool) {
	if ch == '\r' {
		ch = '\n'
	}

	for code := range plainMap {
		switch {
		case plainMap[code] == ch && ch != 0:
			return uint8(code), false, true
		case plainMap[code] >= 'a' && plainMap[code] <= 'z' && plainMap[code]-'a'+'A' == ch:
			return uint8(code), true, true
		case shiftMap[code] == ch && ch != 0 && plainMap[code] != ch:
			return uint8(code), true, true
		}
	}
	return 0, false, false
}
