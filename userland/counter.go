package userland

import (
	"strconv"

	"gopherix/machine/hosted"
	"gopherix/userland/sys"
)

// counter prints the numbers 1 to N. N is its argument and defaults to 10.
func counter(u *hosted.User) {
	p := sys.New(u)

	n := countArg(p, 10)
	if n < 0 {
		p.Puts("usage: counter [count]\n")
		p.Halt(1)
	}

	for i := 1; i <= n; i++ {
		p.Puts("counter: " + strconv.Itoa(i) + "\n")
	}
}
