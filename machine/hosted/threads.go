package hosted

import (
	"fmt"
	"runtime"

	"gopherix/kernel/cpu"
)

// newThread allocates a wakeup channel for a thread that is about to park
// and returns the token identifying it.
func (m *Machine) newThread() (uintptr, chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextToken++
	wake := make(chan struct{}, 1)
	m.threads[m.nextToken] = wake
	return m.nextToken, wake
}

// resume hands the CPU to the thread parked on ctx. Each context can be
// resumed once.
func (m *Machine) resume(ctx cpu.Context) {
	m.mu.Lock()
	wake, ok := m.threads[ctx.ESP]
	delete(m.threads, ctx.ESP)
	m.mu.Unlock()

	if !ok {
		panic(fmt.Sprintf("resume of unknown context %#x", ctx.ESP))
	}
	wake <- struct{}{}
}

// park blocks the calling thread until it is resumed. Threads parked when
// the machine stops exit.
func (m *Machine) park(wake chan struct{}) {
	select {
	case <-wake:
	case <-m.halted:
	}
	m.stopIfHalted()
}

func saveTo(save *cpu.Context, token uintptr) {
	save.ESP, save.EBP = token, token
}

// Switch parks the calling thread in save and resumes to.
func (m *Machine) Switch(save *cpu.Context, to cpu.Context) {
	token, wake := m.newThread()
	saveTo(save, token)

	m.resume(to)
	m.park(wake)
}

// Restore resumes ctx and terminates the calling thread.
func (m *Machine) Restore(ctx cpu.Context) {
	m.resume(ctx)
	runtime.Goexit()
}

// Spawn creates a parked thread that runs entry once resumed.
func (m *Machine) Spawn(entry func()) cpu.Context {
	token, wake := m.newThread()

	m.wg.Add(1)
	go func() {
		defer m.exitThread()
		m.park(wake)
		entry()
		m.fail(errSpawnReturned)
	}()

	return cpu.Context{ESP: token, EBP: token}
}

// EnterUser parks the calling thread in save and starts the user program
// whose image is loaded in the active address space.
func (m *Machine) EnterUser(frame *cpu.TrapFrame, save *cpu.Context) {
	token, wake := m.newThread()
	saveTo(save, token)

	m.wg.Add(1)
	go m.runUser(*frame)
	m.park(wake)
}
