package core

import (
	"context"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"gopherix/device/keyboard"
	"gopherix/device/pic"
	"gopherix/device/pit"
	"gopherix/device/rtc"
	"gopherix/device/tty"
	"gopherix/device/video/console"
	"gopherix/kernel/cpu"
	"gopherix/kernel/fs/bootfs"
	"gopherix/kernel/gate"
	"gopherix/kernel/mm"
	"gopherix/kernel/mm/vmm"
	"gopherix/kernel/proc"
	"gopherix/kernel/term"
	"gopherix/machine/hosted"
)

const waitTimeout = 5 * time.Second

type testFile struct {
	name string
	data []byte
}

type harness struct {
	m *hosted.Machine
	k *Kernel
}

// boot starts a kernel on a hosted machine. The archive holds a directory
// entry, the clock, one executable per program and the supplied files.
// Programs may refer to h; its kernel is set before any program runs.
func (h *harness) boot(t *testing.T, cfg Config, programs map[string]hosted.Program, files ...testFile) {
	t.Helper()

	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}

	b := bootfs.NewBuilder()
	must(b.AddDirectory("."))
	must(b.AddRTC("rtc"))

	names := make([]string, 0, len(programs))
	for name := range programs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		must(b.AddFile(name, hosted.Binary(name)))
	}
	for _, f := range files {
		must(b.AddFile(f.name, f.data))
	}

	img, kerr := bootfs.Open(b.Bytes())
	if kerr != nil {
		t.Fatal(kerr)
	}

	m, err := hosted.New(hosted.Config{Programs: programs})
	if err != nil {
		t.Fatal(err)
	}

	origPlatform := cpu.GetPlatform()
	cpu.SetPlatform(m)
	mm.SetPhysicalMemory(m.PhysicalMemory())
	gate.Reset()
	t.Cleanup(func() {
		if err := m.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
		gate.Reset()
		cpu.SetPlatform(origPlatform)
		mm.SetPhysicalMemory(nil)
	})

	// Boot failures panic; the machine records them as its error.
	h.m = m
	ready := make(chan struct{})
	m.Start(func() {
		dev := Devices{
			PIC:      &pic.Controller{},
			Timer:    pit.NewTimer(pit.DefaultFrequency),
			Clock:    rtc.NewClock(rtc.OpenFrequency),
			Keyboard: &keyboard.Driver{},
		}
		if err := dev.PIC.DriverInit(io.Discard); err != nil {
			panic(err)
		}
		if err := dev.Timer.DriverInit(io.Discard); err != nil {
			panic(err)
		}
		if err := dev.Clock.DriverInit(io.Discard); err != nil {
			panic(err)
		}

		vm, err := vmm.Init()
		if err != nil {
			panic(err)
		}

		primary := console.NewVgaTextConsole(console.TextColumns, console.TextRows, mm.VideoMemory)
		if err := primary.SetFramebuffer(mm.VideoMemory); err != nil {
			panic(err)
		}
		vt := tty.NewVT(tty.DefaultTabWidth)
		vt.AttachTo(primary)
		vt.Clear()

		mux, err := term.New(primary, vt, vm)
		if err != nil {
			panic(err)
		}

		h.k = New(cfg, img, vm, mux, dev)
		close(ready)
		h.k.Start()
	})

	select {
	case <-ready:
	case <-m.Halted():
		t.Fatalf("machine stopped while booting: %v", m.Err())
	case <-time.After(waitTimeout):
		t.Fatal("timed out booting the kernel")
	}
}

// idle waits until every runnable thread blocks.
func (h *harness) idle(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := h.m.WaitIdle(ctx); err != nil {
		t.Fatalf("waiting for the kernel to idle: %v", err)
	}
}

// typeKeys injects scancodes and waits for the kernel to consume them.
func (h *harness) typeKeys(t *testing.T, scancodes []byte) {
	t.Helper()
	h.m.Type(scancodes)
	h.idle(t)
}

func (h *harness) screenContains(text string) bool {
	for _, row := range h.m.Screen() {
		if strings.Contains(row, text) {
			return true
		}
	}
	return false
}

// User side helpers.

func write(u *hosted.User, s string) int32 {
	return u.Syscall(SysWrite, proc.Stdout, uint32(u.CString(s)), uint32(len(s)))
}

func execute(u *hosted.User, cmd string) int32 {
	return u.Syscall(SysExecute, uint32(u.CString(cmd)), 0, 0)
}

func readLine(u *hosted.User) string {
	buf := u.Alloc(tty.LineSize)
	n := u.Syscall(SysRead, proc.Stdin, uint32(buf), tty.LineSize)
	if n < 0 {
		return ""
	}
	return string(u.Bytes(buf, int(n)))
}

// block parks the program on stdin forever.
func block(u *hosted.User) {
	for {
		readLine(u)
	}
}

func TestParseCommand(t *testing.T) {
	specs := []struct {
		cmd     string
		expName string
		expArgs string
	}{
		{"ls", "ls", ""},
		{"cat frame0.txt", "cat", "frame0.txt"},
		{"  testprog   arg1 arg2", "testprog", "arg1 arg2"},
		{"grep  ", "grep", ""},
		{"   ", "", ""},
		{"", "", ""},
	}

	for specIndex, spec := range specs {
		name, args := ParseCommand([]byte(spec.cmd))
		if string(name) != spec.expName || string(args) != spec.expArgs {
			t.Errorf("[spec %d] expected (%q, %q); got (%q, %q)", specIndex, spec.expName, spec.expArgs, name, args)
		}
	}
}

func TestBootLaunchesShell(t *testing.T) {
	h := &harness{}
	h.boot(t, Config{}, map[string]hosted.Program{
		"shell": func(u *hosted.User) {
			write(u, "391OS> ")
			block(u)
		},
	})
	h.idle(t)

	if !h.screenContains("391OS>") {
		t.Fatalf("expected the shell prompt on screen; got %q", h.m.Screen())
	}

	if exp, got := 1, h.k.Processes().Live(); got != exp {
		t.Fatalf("expected %d live process; got %d", exp, got)
	}

	t0 := h.k.Mux().Terminal(0)
	if t0.Processes != 1 || t0.Active == nil || !t0.Active.IsShell() {
		t.Fatalf("expected a root shell on terminal 0; got %d processes", t0.Processes)
	}

	if exp, got := t0.Active.KernelStack(), h.m.KernelStack(); got != exp {
		t.Fatalf("expected kernel stack 0x%x; got 0x%x", exp, got)
	}
}

func TestShellRelaunch(t *testing.T) {
	launches := 0
	h := &harness{}
	h.boot(t, Config{}, map[string]hosted.Program{
		"shell": func(u *hosted.User) {
			launches++
			if launches == 1 {
				return
			}
			block(u)
		},
	})
	h.idle(t)

	if launches != 2 {
		t.Fatalf("expected the root shell to be relaunched once; got %d launches", launches)
	}
	if exp, got := 1, h.k.Processes().Live(); got != exp {
		t.Fatalf("expected %d live process; got %d", exp, got)
	}
	if got := h.k.Mux().Processes(); got != 1 {
		t.Fatalf("expected terminal counts to add up to 1; got %d", got)
	}
}

func TestCustomShell(t *testing.T) {
	var args string
	h := &harness{}
	h.boot(t, Config{Shell: "login  guest"}, map[string]hosted.Program{
		"login": func(u *hosted.User) {
			buf := u.Alloc(32)
			if u.Syscall(SysGetArgs, uint32(buf), 32, 0) == 0 {
				args = strings.TrimRight(string(u.Bytes(buf, 32)), "\x00")
			}
			block(u)
		},
	})
	h.idle(t)

	if args != "guest" {
		t.Fatalf("expected the configured shell to receive %q; got %q", "guest", args)
	}
}

func TestTerminalIO(t *testing.T) {
	var (
		lines  []string
		counts []int32
	)
	h := &harness{}
	h.boot(t, Config{}, map[string]hosted.Program{
		"shell": func(u *hosted.User) {
			counts = append(counts, write(u, "name? "))

			lines = append(lines, readLine(u))

			// short reads drop the rest of the line
			buf := u.Alloc(4)
			n := u.Syscall(SysRead, proc.Stdin, uint32(buf), 3)
			counts = append(counts, n)
			lines = append(lines, string(u.Bytes(buf, int(n))))
			block(u)
		},
	})
	h.idle(t)
	h.typeKeys(t, keyboard.Encode("gopher\n"))
	h.typeKeys(t, keyboard.Encode("abcdef\n"))

	if len(lines) != 2 || lines[0] != "gopher\n" || lines[1] != "abc" {
		t.Fatalf("unexpected lines read from stdin: %q", lines)
	}
	if len(counts) != 2 || counts[0] != 6 || counts[1] != 3 {
		t.Fatalf("unexpected return values %v", counts)
	}
	if !h.screenContains("name? gopher") {
		t.Fatalf("expected typed characters to be echoed; got %q", h.m.Screen())
	}
}

func TestClearScreen(t *testing.T) {
	h := &harness{}
	h.boot(t, Config{}, map[string]hosted.Program{
		"shell": func(u *hosted.User) {
			write(u, "old output\n")
			block(u)
		},
	})
	h.idle(t)
	h.typeKeys(t, keyboard.Encode("ls"))
	h.typeKeys(t, keyboard.EncodeClear())

	if h.screenContains("old output") {
		t.Fatal("expected Ctrl+L to clear the screen")
	}
	if row := h.m.Screen()[0]; row != "ls" {
		t.Fatalf("expected the pending line to be redrawn; got %q", row)
	}
}
