package userland

import (
	"strconv"

	"gopherix/machine/hosted"
	"gopherix/userland/sys"
)

// sigtest reports what the signal system calls return.
func sigtest(u *hosted.User) {
	p := sys.New(u)

	const sigAlarm = 3
	ret := p.SetHandler(sigAlarm, p.Scratch())
	p.Puts("set_handler returned " + strconv.Itoa(int(ret)) + "\n")

	ret = p.Sigreturn()
	p.Puts("sigreturn returned " + strconv.Itoa(int(ret)) + "\n")
}
