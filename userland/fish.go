package userland

import (
	"bytes"

	"gopherix/device/video/console"
	"gopherix/machine/hosted"
	"gopherix/userland/sys"
)

const (
	fishRate        = 8
	fishTicksPerHop = 4
)

var fishFrames = []string{"frame0.txt", "frame1.txt"}

// fish alternates between two frames drawn straight into video memory. Its
// argument limits the number of frames; without one it runs forever.
func fish(u *hosted.User) {
	p := sys.New(u)

	frames := countArg(p, -1)

	var art [][]byte
	for _, name := range fishFrames {
		data, ok := readFile(p, name)
		if !ok {
			p.Puts("could not read " + name + "\n")
			p.Halt(2)
		}
		art = append(art, data)
	}

	video, ret := p.Vidmap()
	if ret != 0 {
		p.Puts("vidmap failed\n")
		p.Halt(3)
	}
	clock := openClock(p, fishRate)

	for frame := 0; frames < 0 || frame < frames; frame++ {
		drawFrame(u, video, art[frame%len(art)])
		for tick := 0; tick < fishTicksPerHop; tick++ {
			p.Read(clock, 4)
		}
	}

	p.Close(clock)
}

// drawFrame writes the lines of art to the top rows of the screen. Lines are
// padded to the full row width so the previous frame is erased.
func drawFrame(u *hosted.User, video uintptr, art []byte) {
	row := make([]byte, console.TextColumns*2)
	for y, line := range bytes.Split(art, []byte{'\n'}) {
		if y == console.TextRows {
			break
		}

		for x := 0; x < console.TextColumns; x++ {
			ch := byte(' ')
			if x < len(line) {
				ch = line[x]
			}
			row[2*x], row[2*x+1] = ch, console.DefaultAttribute
		}
		u.Poke(video+uintptr(y*len(row)), row)
	}
}

func readFile(p *sys.Proc, name string) ([]byte, bool) {
	fd := p.Open(name)
	if fd < 0 {
		return nil, false
	}
	defer p.Close(fd)

	var data []byte
	for {
		chunk, n := p.Read(fd, sys.BufSize)
		if n < 0 {
			return nil, false
		}
		if n == 0 {
			return data, true
		}
		data = append(data, chunk...)
	}
}
