package kfmt

import (
	"bytes"
	"errors"
	"gopherix/kernel"
	"gopherix/kernel/cpu"
	"testing"
)

func TestPanic(t *testing.T) {
	defer func() {
		cpuHaltFn = cpu.Halt
		outputSink = nil
	}()

	var (
		buf           bytes.Buffer
		cpuHaltCalled bool
	)
	SetOutputSink(&buf)
	cpuHaltFn = func() {
		cpuHaltCalled = true
	}

	specs := []struct {
		descr string
		arg   interface{}
		exp   string
	}{
		{
			"with *kernel.Error",
			&kernel.Error{Module: "test", Message: "panic test"},
			"\n-----------------------------------\n[test] unrecoverable error: panic test\n*** kernel panic: system halted ***\n-----------------------------------\n",
		},
		{
			"with error",
			errors.New("go error"),
			"\n-----------------------------------\n[rt] unrecoverable error: go error\n*** kernel panic: system halted ***\n-----------------------------------\n",
		},
		{
			"with string",
			"string error",
			"\n-----------------------------------\n[rt] unrecoverable error: string error\n*** kernel panic: system halted ***\n-----------------------------------\n",
		},
		{
			"without error",
			nil,
			"\n-----------------------------------\n*** kernel panic: system halted ***\n-----------------------------------\n",
		},
	}

	for _, spec := range specs {
		t.Run(spec.descr, func(t *testing.T) {
			buf.Reset()
			cpuHaltCalled = false

			Panic(spec.arg)

			if got := buf.String(); got != spec.exp {
				t.Fatalf("expected to get:\n%q\ngot:\n%q", spec.exp, got)
			}

			if !cpuHaltCalled {
				t.Fatal("expected cpu.Halt() to be called by Panic")
			}
		})
	}
}
