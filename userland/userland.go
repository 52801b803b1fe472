// Package userland contains the user programs shipped in the boot archive.
// Importing the package registers every program with the hosted machine.
package userland

import (
	"strconv"
	"strings"

	"gopherix/machine/hosted"
	"gopherix/userland/sys"
)

var programs = map[string]hosted.Program{
	"shell":    shell,
	"ls":       ls,
	"cat":      cat,
	"hello":    hello,
	"counter":  counter,
	"pingpong": pingpong,
	"fish":     fish,
	"sigtest":  sigtest,
	"syserr":   syserr,
}

func init() {
	for name, prog := range programs {
		hosted.Register(name, prog)
	}
}

// countArg parses the first argument as a repeat count. It returns def if
// the program was started without arguments and -1 if the argument is not a
// number.
func countArg(p *sys.Proc, def int) int {
	args, ret := p.GetArgs()
	if ret != 0 {
		return def
	}

	n, err := strconv.Atoi(strings.Fields(args)[0])
	if err != nil || n < 0 {
		return -1
	}
	return n
}
