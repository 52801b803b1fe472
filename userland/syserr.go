package userland

import (
	"strconv"

	"gopherix/kernel/mm"
	"gopherix/machine/hosted"
	"gopherix/userland/sys"
)

// errCheck is a system call that is expected to return exp.
type errCheck struct {
	name string
	exp  int32
	call func(p *sys.Proc) int32
}

var errChecks = []errCheck{
	{"open empty name", -1, func(p *sys.Proc) int32 { return p.Open("") }},
	{"open missing file", -1, func(p *sys.Proc) int32 { return p.Open("nonexistent") }},
	{"read stdout", -1, func(p *sys.Proc) int32 { _, n := p.Read(sys.Stdout, 4); return n }},
	{"write stdin", -1, func(p *sys.Proc) int32 { return p.Write(sys.Stdin, []byte("x")) }},
	{"read unopened descriptor", -1, func(p *sys.Proc) int32 { _, n := p.Read(7, 4); return n }},
	{"read out of range descriptor", -1, func(p *sys.Proc) int32 { _, n := p.Read(8, 4); return n }},
	{"close stdin", -1, func(p *sys.Proc) int32 { return p.Close(sys.Stdin) }},
	{"close stdout", -1, func(p *sys.Proc) int32 { return p.Close(sys.Stdout) }},
	{"close unopened descriptor", -1, func(p *sys.Proc) int32 { return p.Close(5) }},
	{"read into kernel memory", -1, func(p *sys.Proc) int32 {
		return p.Syscall(sys.SysRead, sys.Stdin, uint32(mm.KernelBase), 4)
	}},
	{"getargs without arguments", -1, func(p *sys.Proc) int32 { _, ret := p.GetArgs(); return ret }},
	{"getargs zero length", -1, func(p *sys.Proc) int32 {
		return p.Syscall(sys.SysGetArgs, uint32(p.Scratch()), 0, 0)
	}},
	{"vidmap null pointer", -1, func(p *sys.Proc) int32 { return p.Syscall(sys.SysVidmap, 0, 0, 0) }},
	{"vidmap kernel pointer", -1, func(p *sys.Proc) int32 {
		return p.Syscall(sys.SysVidmap, uint32(mm.KernelBase), 0, 0)
	}},
	{"execute empty command", -1, func(p *sys.Proc) int32 { return p.Execute("") }},
	{"execute missing program", -1, func(p *sys.Proc) int32 { return p.Execute("nonexistent") }},
	{"execute directory", -1, func(p *sys.Proc) int32 { return p.Execute(".") }},
	{"set_handler", -1, func(p *sys.Proc) int32 { return p.SetHandler(0, 0) }},
	{"sigreturn", -1, func(p *sys.Proc) int32 { return p.Sigreturn() }},
	{"system call 0", -1, func(p *sys.Proc) int32 { return p.Syscall(0, 0, 0, 0) }},
	{"system call 11", -1, func(p *sys.Proc) int32 { return p.Syscall(11, 0, 0, 0) }},
	{"descriptor table limit", -1, func(p *sys.Proc) int32 {
		var fds []int32
		defer func() {
			for _, fd := range fds {
				p.Close(fd)
			}
		}()

		for {
			fd := p.Open(".")
			if fd < 0 {
				if len(fds) != 6 {
					return 0
				}
				return fd
			}
			fds = append(fds, fd)
		}
	}},
	{"close twice", -1, func(p *sys.Proc) int32 {
		fd := p.Open(".")
		p.Close(fd)
		return p.Close(fd)
	}},
}

// syserr runs system calls with invalid arguments and reports the ones that
// do not fail.
func syserr(u *hosted.User) {
	p := sys.New(u)

	var passed int
	for _, check := range errChecks {
		got := check.call(p)
		if got == check.exp {
			passed++
			continue
		}
		p.Puts("FAIL " + check.name + ": got " + strconv.Itoa(int(got)) + "\n")
	}

	p.Puts("syserr: " + strconv.Itoa(passed) + "/" + strconv.Itoa(len(errChecks)) + " passed\n")
	if passed != len(errChecks) {
		p.Halt(1)
	}
}
