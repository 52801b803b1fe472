package hosted

import (
	"bytes"

	"gopherix/kernel/mm"
)

// Text mode geometry.
const (
	ScreenColumns = 80
	ScreenRows    = 25
)

// Screen returns the characters displayed by the VGA text framebuffer, one
// string per row with trailing blanks removed. It should only be called
// while the machine is idle or stopped.
func (m *Machine) Screen() []string {
	rows := make([]string, ScreenRows)
	if uintptr(len(m.mem)) < mm.VideoMemory+ScreenColumns*ScreenRows*2 {
		return rows
	}

	fb := m.mem[mm.VideoMemory:]
	line := make([]byte, ScreenColumns)
	for y := range rows {
		for x := range line {
			ch := fb[(y*ScreenColumns+x)*2]
			if ch < ' ' || ch >= 0x7f {
				ch = ' '
			}
			line[x] = ch
		}
		rows[y] = string(bytes.TrimRight(line, " "))
	}
	return rows
}

// Cursor returns the hardware cursor position as zero-based column and row.
func (m *Machine) Cursor() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(m.crtc.cursor) % ScreenColumns, int(m.crtc.cursor) / ScreenColumns
}
