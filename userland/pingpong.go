package userland

import (
	"bytes"
	"encoding/binary"

	"gopherix/machine/hosted"
	"gopherix/userland/sys"
)

const (
	pingpongWidth = 72
	pingpongRate  = 32
)

// pingpong bounces a ball along a line, drawing a frame per clock tick. Its
// argument limits the number of frames; without one it runs forever.
func pingpong(u *hosted.User) {
	p := sys.New(u)

	frames := countArg(p, -1)
	clock := openClock(p, pingpongRate)

	line := make([]byte, pingpongWidth+1)
	pos, step := 0, 1
	for frame := 0; frames < 0 || frame < frames; frame++ {
		line[0] = '\r'
		copy(line[1:], bytes.Repeat([]byte{' '}, pingpongWidth))
		line[1+pos] = 'o'
		p.Write(sys.Stdout, line)

		if pos+step < 0 || pos+step >= pingpongWidth {
			step = -step
		}
		pos += step

		p.Read(clock, 4)
	}

	p.Puts("\n")
	p.Close(clock)
}

// openClock opens the real-time clock and sets its rate. The program halts
// if the clock is missing.
func openClock(p *sys.Proc, hz uint32) int32 {
	fd := p.Open("rtc")
	if fd < 0 {
		p.Puts("rtc open failed\n")
		p.Halt(2)
	}

	var rate [4]byte
	binary.LittleEndian.PutUint32(rate[:], hz)
	if p.Write(fd, rate[:]) < 0 {
		p.Puts("rtc rate change failed\n")
		p.Halt(3)
	}
	return fd
}
