// Command gopherix boots the kernel on a hosted machine. Lines read from
// stdin are typed into the foreground terminal and the screen is printed
// when the machine stops.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"gopherix/device/keyboard"
	"gopherix/kernel/cpu"
	"gopherix/kernel/kfmt"
	"gopherix/kernel/kmain"
	"gopherix/kernel/mm"
	"gopherix/machine/hosted"
	"gopherix/userland/image"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type options struct {
	Image       string        `type:"existingfile" help:"Boot archive to load. By default an archive of every user program is built."`
	Root        string        `type:"existingdir" help:"Directory of files to add to the built-in archive."`
	CmdLine     string        `name:"cmdline" help:"Kernel command line."`
	Script      string        `help:"Keystrokes to type once the kernel is idle. A literal \\n ends a line."`
	Timeout     time.Duration `help:"Stop the machine after this long."`
	Sched       bool          `help:"Let the timer rotate the terminals."`
	TimeScale   int           `default:"1" help:"Speed up the device clocks."`
	Interactive bool          `short:"i" default:"true" negatable:"" help:"Type lines read from stdin into the foreground terminal."`
	Verbose     bool          `short:"v" help:"Log machine events to stderr."`
}

var log = logrus.New()

func main() {
	var opts options
	ctx := kong.Parse(&opts,
		kong.Name("gopherix"),
		kong.Description("Boot the kernel on a hosted machine."),
	)

	if opts.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	ctx.FatalIfErrorf(run(opts, os.Stdin, os.Stdout))
}

// loadImage reads or builds the boot archive.
func loadImage(opts options) ([]byte, error) {
	if opts.Image == "" {
		return image.Build(image.Options{Root: opts.Root})
	}

	if opts.Root != "" {
		return nil, errors.New("--image and --root are mutually exclusive")
	}
	return os.ReadFile(opts.Image)
}

func run(opts options, stdin io.Reader, stdout io.Writer) error {
	img, err := loadImage(opts)
	if err != nil {
		return err
	}
	if uintptr(len(img)) > mm.BootArchiveMaxSize {
		return fmt.Errorf("boot archive is %d bytes; at most %d fit in memory", len(img), mm.BootArchiveMaxSize)
	}

	log.WithFields(logrus.Fields{"bytes": len(img), "addr": fmt.Sprintf("%#x", mm.BootArchiveBase)}).Debug("loading boot archive")

	cmdLine := opts.CmdLine
	if opts.Sched {
		cmdLine += " sched=on"
	}

	m, err := hosted.New(hosted.Config{TimeScale: opts.TimeScale})
	if err != nil {
		return err
	}
	defer func() {
		// The sink lives in the machine's memory.
		kfmt.SetOutputSink(nil)
		m.Close()
	}()

	cpu.SetPlatform(m)
	copy(m.PhysicalMemory()[mm.BootArchiveBase:], img)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.Run(ctx, func() {
			kmain.Kmain(cmdLine, mm.BootArchiveBase, uintptr(len(img)))
		})
	})
	g.Go(func() error {
		return typeScript(ctx, m, opts.Script)
	})
	if opts.Interactive {
		lines := readLines(stdin)
		g.Go(func() error {
			return pump(ctx, m, lines)
		})
	}

	err = g.Wait()
	log.WithError(err).Debug("machine stopped")
	render(stdout, m)

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, hosted.ErrHalted):
		return errors.New("kernel halted the cpu")
	}
	return err
}

// typeScript waits for the kernel to idle and types script.
func typeScript(ctx context.Context, m *hosted.Machine, script string) error {
	if script == "" {
		return nil
	}

	if err := m.WaitIdle(ctx); err != nil {
		return nil
	}
	log.WithField("script", script).Debug("typing script")
	m.Type(keyboard.Encode(strings.ReplaceAll(script, `\n`, "\n")))
	return nil
}

// readLines forwards the lines of r. The goroutine is not part of the
// errgroup since reads from a terminal cannot be interrupted.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// pump types every line read from stdin into the foreground terminal.
func pump(ctx context.Context, m *hosted.Machine, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.Halted():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			m.Type(keyboard.Encode(line + "\n"))
		}
	}
}

// render prints the foreground screen.
func render(w io.Writer, m *hosted.Machine) {
	border := strings.Repeat("-", hosted.ScreenColumns)
	fmt.Fprintln(w, border)
	for _, row := range m.Screen() {
		fmt.Fprintln(w, row)
	}
	fmt.Fprintln(w, border)
}
