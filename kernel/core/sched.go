package core

import (
	"gopherix/kernel/proc"
	"gopherix/kernel/term"
)

// Tick runs on every timer interrupt. With the scheduler enabled it rotates
// the run queues and hands the CPU to the terminal of the next process.
// Terminals without a running process are served first while the process
// budget allows it so that their launchers can start a shell.
func (k *Kernel) Tick() {
	if !k.cfg.Sched {
		return
	}

	if k.mux.Processes() < proc.MaxProcesses {
		for id := 0; id < term.NumTerminals; id++ {
			t := k.mux.Terminal(id)
			if id == k.running || t.Active != nil {
				continue
			}

			if t.Idle.Valid() || id == k.mux.Foreground() {
				k.handoff(id)
				return
			}
		}
	}

	next, ok := k.queues.Tick()
	if !ok {
		return
	}

	if p := k.procs.Lookup(next); p != nil && p.Terminal != k.running {
		k.handoff(p.Terminal)
	}
}
