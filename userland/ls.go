package userland

import (
	"gopherix/kernel/fs"
	"gopherix/machine/hosted"
	"gopherix/userland/sys"
)

// ls prints one directory entry name per line.
func ls(u *hosted.User) {
	p := sys.New(u)

	fd := p.Open(".")
	if fd < 0 {
		p.Puts("directory open failed\n")
		p.Halt(2)
	}

	for {
		name, n := p.Read(fd, fs.NameLength)
		if n < 0 {
			p.Puts("directory entry read failed\n")
			p.Halt(3)
		}
		if n == 0 {
			break
		}

		p.Write(sys.Stdout, append(name, '\n'))
	}

	p.Close(fd)
}
