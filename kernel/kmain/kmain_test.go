package kmain

import (
	"context"
	"strings"
	"testing"
	"time"

	"gopherix/kernel/core"
	"gopherix/kernel/cpu"
	"gopherix/kernel/fs/bootfs"
	"gopherix/kernel/gate"
	"gopherix/kernel/kfmt"
	"gopherix/kernel/mm"
	"gopherix/kernel/proc"
	"gopherix/machine/hosted"
)

const waitTimeout = 5 * time.Second

func archive(t *testing.T, programs ...string) []byte {
	t.Helper()

	b := bootfs.NewBuilder()
	if err := b.AddDirectory("."); err != nil {
		t.Fatal(err)
	}
	if err := b.AddRTC("rtc"); err != nil {
		t.Fatal(err)
	}
	for _, name := range programs {
		if err := b.AddFile(name, hosted.Binary(name)); err != nil {
			t.Fatal(err)
		}
	}
	return b.Bytes()
}

// bootMachine places img in the boot archive region of a hosted machine and
// runs Kmain on it.
func bootMachine(t *testing.T, cmdLine string, programs map[string]hosted.Program, img []byte, addr uintptr) *hosted.Machine {
	t.Helper()

	m, err := hosted.New(hosted.Config{Programs: programs})
	if err != nil {
		t.Fatal(err)
	}

	origPlatform := cpu.GetPlatform()
	cpu.SetPlatform(m)
	gate.Reset()
	t.Cleanup(func() {
		if err := m.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
		kfmt.SetOutputSink(nil)
		gate.Reset()
		cpu.SetPlatform(origPlatform)
		mm.SetPhysicalMemory(nil)
	})

	copy(m.PhysicalMemory()[addr:], img)
	m.Start(func() {
		Kmain(cmdLine, addr, uintptr(len(img)))
	})
	return m
}

func screenContains(m *hosted.Machine, text string) bool {
	for _, row := range m.Screen() {
		if strings.Contains(row, text) {
			return true
		}
	}
	return false
}

func waitIdle(t *testing.T, m *hosted.Machine) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := m.WaitIdle(ctx); err != nil {
		t.Fatalf("waiting for the kernel to idle: %v", err)
	}
}

func TestKmain(t *testing.T) {
	var shellRuns int
	m := bootMachine(t, "", map[string]hosted.Program{
		"shell": func(u *hosted.User) {
			shellRuns++
			msg := "391OS> "
			u.Syscall(core.SysWrite, proc.Stdout, uint32(u.CString(msg)), uint32(len(msg)))
			for {
				buf := u.Alloc(128)
				u.Syscall(core.SysRead, proc.Stdin, uint32(buf), 128)
			}
		},
	}, archive(t, "shell"), mm.BootArchiveBase)
	waitIdle(t, m)

	if shellRuns != 1 {
		t.Fatalf("expected the shell to run once; got %d", shellRuns)
	}

	for _, exp := range []string{
		"[hal] i8259(0.1.0): initialized",
		"[hal] vga_text_console(0.1.0): 80x25 text framebuffer at 0xb8000",
		"Starting gopherix",
		"[kmain] boot archive format " + bootfs.FormatVersion + ", 3 entries",
		"391OS>",
	} {
		if !screenContains(m, exp) {
			t.Errorf("expected the screen to contain %q; got %q", exp, m.Screen())
		}
	}
}

func TestKmainBootParams(t *testing.T) {
	var ran string
	m := bootMachine(t, "shell=login quiet=1", map[string]hosted.Program{
		"login": func(u *hosted.User) {
			ran = "login"
			for {
				buf := u.Alloc(128)
				u.Syscall(core.SysRead, proc.Stdin, uint32(buf), 128)
			}
		},
	}, archive(t, "login"), mm.BootArchiveBase)
	waitIdle(t, m)

	if ran != "login" {
		t.Fatal("expected the shell boot parameter to select the program launched on each terminal")
	}
	if screenContains(m, "[hal]") {
		t.Fatalf("expected quiet mode to suppress the driver probe output; got %q", m.Screen())
	}
}

func TestKmainErrors(t *testing.T) {
	specs := []struct {
		descr  string
		img    []byte
		addr   uintptr
		expMsg string
	}{
		{"empty archive", nil, mm.BootArchiveBase, "[bootfs] unrecoverable error: archive is smaller than its boot block"},
		{"archive below its region", make([]byte, bootfs.BlockSize), mm.BootArchiveBase - bootfs.BlockSize, "[kmain] unrecoverable error: boot archive outside of its reserved region"},
		{"archive past its region", make([]byte, bootfs.BlockSize), mm.BootArchiveBase + mm.BootArchiveMaxSize - 1, "[kmain] unrecoverable error: boot archive outside of its reserved region"},
	}

	for _, spec := range specs {
		t.Run(spec.descr, func(t *testing.T) {
			m := bootMachine(t, "", nil, spec.img, spec.addr)

			select {
			case <-m.Halted():
			case <-time.After(waitTimeout):
				t.Fatal("expected the machine to halt")
			}

			if err := m.Err(); err != hosted.ErrHalted {
				t.Fatalf("expected the kernel to halt the cpu; got %v", err)
			}
			if !screenContains(m, spec.expMsg) {
				t.Fatalf("expected the screen to contain %q; got %q", spec.expMsg, m.Screen())
			}
		})
	}
}
