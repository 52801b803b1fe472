package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopherix/kernel/cpu"

	"github.com/alecthomas/kong"
)

func TestRun(t *testing.T) {
	defer cpu.SetPlatform(cpu.GetPlatform())

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "motd.txt"), []byte("welcome, gopher\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := run(options{
		Root:        root,
		CmdLine:     "quiet=1",
		Script:      `cat motd.txt\n`,
		Timeout:     time.Second,
		Interactive: false,
	}, strings.NewReader(""), &out)
	if err != nil {
		t.Fatal(err)
	}

	for _, exp := range []string{"391OS> cat motd.txt", "welcome, gopher"} {
		if !strings.Contains(out.String(), exp) {
			t.Errorf("expected the rendered screen to contain %q; got:\n%s", exp, out.String())
		}
	}
}

func TestLoadImage(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "fs.img")
	if err := os.WriteFile(archive, []byte("raw archive"), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := loadImage(options{Image: archive})
	if err != nil || string(data) != "raw archive" {
		t.Fatalf("expected the archive to be read verbatim; got %q, %v", data, err)
	}

	if _, err := loadImage(options{Image: archive, Root: t.TempDir()}); err == nil {
		t.Fatal("expected --image and --root to be mutually exclusive")
	}
}

func TestRunBadImage(t *testing.T) {
	defer cpu.SetPlatform(cpu.GetPlatform())

	archive := filepath.Join(t.TempDir(), "fs.img")
	if err := os.WriteFile(archive, []byte("too small"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := run(options{Image: archive, Timeout: 5 * time.Second}, strings.NewReader(""), &out)
	if err == nil {
		t.Fatal("expected the kernel to halt on a corrupt archive")
	}
	if !strings.Contains(out.String(), "archive is smaller than its boot block") {
		t.Fatalf("expected the panic message on screen; got:\n%s", out.String())
	}
}

func TestReadLines(t *testing.T) {
	var got []string
	for line := range readLines(strings.NewReader("ls\ncat motd.txt\n")) {
		got = append(got, line)
	}

	if len(got) != 2 || got[0] != "ls" || got[1] != "cat motd.txt" {
		t.Fatalf("unexpected lines %q", got)
	}
}

func TestParseOptions(t *testing.T) {
	var opts options
	parser, err := kong.New(&opts, kong.Name("gopherix"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err = parser.Parse([]string{"--cmdline", "shell=login", "--timeout", "2s", "--sched", "--no-interactive"}); err != nil {
		t.Fatal(err)
	}

	if opts.CmdLine != "shell=login" || opts.Timeout != 2*time.Second || !opts.Sched {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.Interactive {
		t.Error("expected --no-interactive to disable the stdin pump")
	}
	if opts.TimeScale != 1 {
		t.Errorf("expected the default time scale to be 1; got %d", opts.TimeScale)
	}

	if _, err = parser.Parse([]string{"--image", "/nonexistent/fs.img"}); err == nil {
		t.Error("expected a missing archive to be rejected")
	}
}
