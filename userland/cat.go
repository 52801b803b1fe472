package userland

import (
	"gopherix/machine/hosted"
	"gopherix/userland/sys"
)

// cat copies the file named by its argument to the terminal.
func cat(u *hosted.User) {
	p := sys.New(u)

	name, ret := p.GetArgs()
	if ret != 0 {
		p.Puts("could not read arguments\n")
		p.Halt(3)
	}

	fd := p.Open(name)
	if fd < 0 {
		p.Puts("file open failed\n")
		p.Halt(2)
	}

	for {
		data, n := p.Read(fd, sys.BufSize)
		if n < 0 {
			p.Puts("file read failed\n")
			p.Halt(3)
		}
		if n == 0 {
			break
		}

		if p.Write(sys.Stdout, data) < 0 {
			p.Halt(3)
		}
	}

	p.Close(fd)
}
