package cpu

import "testing"

type recordingPlatform struct {
	Platform

	pdt      uintptr
	esp0     uintptr
	flushed  []uintptr
	ports    map[uint16]uint8
	switches int
}

func (p *recordingPlatform) SwitchPDT(addr uintptr)             { p.pdt = addr }
func (p *recordingPlatform) ActivePDT() uintptr                 { return p.pdt }
func (p *recordingPlatform) FlushTLBEntry(virt uintptr)         { p.flushed = append(p.flushed, virt) }
func (p *recordingPlatform) SetKernelStack(esp0 uintptr)        { p.esp0 = esp0 }
func (p *recordingPlatform) KernelStack() uintptr               { return p.esp0 }
func (p *recordingPlatform) PortWriteByte(port uint16, v uint8) { p.ports[port] = v }
func (p *recordingPlatform) PortReadByte(port uint16) uint8     { return p.ports[port] }
func (p *recordingPlatform) Switch(save *Context, to Context) {
	p.switches++
	save.ESP, save.EBP = uintptr(p.switches), uintptr(p.switches)
}

func TestPlatformDelegation(t *testing.T) {
	defer SetPlatform(nil)

	p := &recordingPlatform{ports: make(map[uint16]uint8)}
	SetPlatform(p)

	if GetPlatform() != p {
		t.Fatal("expected GetPlatform to return the registered platform")
	}

	SwitchPDT(0x600000)
	if got := ActivePDT(); got != 0x600000 {
		t.Fatalf("expected active PDT to be 0x600000; got 0x%x", got)
	}

	FlushTLBEntry(0x8800000)
	if len(p.flushed) != 1 || p.flushed[0] != 0x8800000 {
		t.Fatalf("unexpected TLB flush list %v", p.flushed)
	}

	SetKernelStack(0x7ffffc)
	if got := KernelStack(); got != 0x7ffffc {
		t.Fatalf("expected esp0 to be 0x7ffffc; got 0x%x", got)
	}

	PortWriteByte(0x70, 0x8a)
	if got := PortReadByte(0x70); got != 0x8a {
		t.Fatalf("expected port 0x70 to read back 0x8a; got 0x%x", got)
	}

	ctx := Context{PDT: 0x600000}
	Switch(&ctx, Context{ESP: 1})
	if !ctx.Valid() || ctx.PDT != 0x600000 {
		t.Fatalf("expected Switch to fill in the stack pointers only; got %+v", ctx)
	}

	if (Context{}).Valid() {
		t.Fatal("expected zero context to be invalid")
	}
}
