package userland

import (
	"gopherix/machine/hosted"
	"gopherix/userland/sys"
)

func hello(u *hosted.User) {
	p := sys.New(u)
	p.Puts("Hi, what's your name? ")

	name, n := p.Read(sys.Stdin, sys.ArgSize)
	if n < 0 {
		p.Puts("Can't read name from keyboard.\n")
		p.Halt(3)
	}

	p.Puts("Hello, ")
	p.Write(sys.Stdout, name)
}
