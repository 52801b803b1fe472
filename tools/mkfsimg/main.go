package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"gopherix/kernel/fs"
	"gopherix/kernel/fs/bootfs"
	"gopherix/userland/image"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

type config struct {
	src      string
	out      string
	programs string
	version  string
	list     bool
	watch    bool
}

var log = logrus.New()

func exit(err error) {
	log.WithError(err).Error("mkfsimg failed")
	os.Exit(1)
}

func main() {
	var cfg config
	flag.StringVar(&cfg.src, "src", "", "directory of files to add to the archive")
	flag.StringVar(&cfg.out, "out", "fs.img", "archive to write")
	flag.StringVar(&cfg.programs, "programs", "", "comma-separated programs to embed; all programs by default")
	flag.StringVar(&cfg.version, "format-version", bootfs.FormatVersion, `format version to stamp; "none" writes an unstamped archive`)
	flag.BoolVar(&cfg.list, "list", false, "print the entries of -out instead of building it")
	flag.BoolVar(&cfg.watch, "watch", false, "rebuild whenever a file in -src changes")
	flag.Parse()

	var err error
	switch {
	case cfg.list:
		err = list(cfg.out, os.Stdout)
	case cfg.watch:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err = watch(ctx, cfg, log)
	default:
		err = build(cfg, log)
	}

	if err != nil {
		exit(err)
	}
}

func (cfg config) options() image.Options {
	opts := image.Options{Root: cfg.src}
	if cfg.version == "none" {
		opts.Unstamped = true
	} else {
		opts.Version = cfg.version
	}

	if cfg.programs != "" {
		opts.Programs = []string{}
		for _, name := range strings.Split(cfg.programs, ",") {
			if name = strings.TrimSpace(name); name != "" {
				opts.Programs = append(opts.Programs, name)
			}
		}
	}
	return opts
}

// build writes the archive described by cfg to cfg.out.
func build(cfg config, log logrus.FieldLogger) error {
	data, err := image.Build(cfg.options())
	if err != nil {
		return err
	}

	if err = os.WriteFile(cfg.out, data, 0o644); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{"out": cfg.out, "bytes": len(data)}).Info("wrote archive")
	return nil
}

// list prints the header and the directory entries of an archive.
func list(path string, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	img, kerr := bootfs.Open(data)
	if kerr != nil {
		return kerr
	}

	dentries, inodes, blocks := img.Counts()
	version := "unstamped"
	if v := img.Version(); v != nil {
		version = v.String()
	}
	fmt.Fprintf(w, "format %s, %d entries, %d inodes, %d data blocks\n", version, dentries, inodes, blocks)

	for i := 0; i < int(dentries); i++ {
		d, kerr := img.DentryAt(i)
		if kerr != nil {
			return kerr
		}

		switch d.Type {
		case fs.TypeRegular:
			size, kerr := img.Length(d.Inode)
			if kerr != nil {
				return kerr
			}
			fmt.Fprintf(w, "%-32s file  %8d\n", d.NameBytes(), size)
		case fs.TypeDirectory:
			fmt.Fprintf(w, "%-32s dir\n", d.NameBytes())
		case fs.TypeRTC:
			fmt.Fprintf(w, "%-32s rtc\n", d.NameBytes())
		}
	}
	return nil
}

// watch builds the archive and rebuilds it every time a file in cfg.src is
// created, written, removed or renamed. It returns when ctx is done.
func watch(ctx context.Context, cfg config, log logrus.FieldLogger) error {
	if cfg.src == "" {
		return errors.New("-watch requires -src")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err = watcher.Add(cfg.src); err != nil {
		return err
	}

	out, err := filepath.Abs(cfg.out)
	if err != nil {
		return err
	}

	if err = build(cfg, log); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			// The archive may be written into the watched directory.
			if abs, _ := filepath.Abs(ev.Name); abs == out {
				continue
			}

			log.WithField("file", ev.Name).Debug("source changed")
			if err := build(cfg, log); err != nil {
				log.WithError(err).Warn("rebuild failed")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
