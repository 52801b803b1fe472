package userland

import (
	"strconv"
	"strings"

	"gopherix/machine/hosted"
	"gopherix/userland/sys"
)

// Prompt is printed by the shell before reading a command.
const Prompt = "391OS> "

// shell reads commands from its terminal and executes them until it reads
// "exit".
func shell(u *hosted.User) {
	p := sys.New(u)
	for {
		p.Puts(Prompt)

		line, n := p.Read(sys.Stdin, sys.ArgSize)
		if n < 0 {
			p.Puts("read from keyboard failed\n")
			continue
		}

		cmd := strings.TrimSpace(string(line))
		switch cmd {
		case "":
			continue
		case "exit":
			return
		}

		switch ret := p.Execute(cmd); ret {
		case 0:
		case -1:
			p.Puts("no such command\n")
		default:
			p.Puts("program terminated with status " + strconv.Itoa(int(ret)) + "\n")
		}
	}
}
