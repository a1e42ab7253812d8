package emu

// createTestROM builds a full 128KB firmware image where each byte
// encodes which 4KB block it lives in. Bank checks read unambiguous
// values: offset 0x08000 holds 0x08, offset 0x18000 holds 0x18.
func createTestROM() []byte {
	rom := make([]byte, ROMSize)
	for i := range rom {
		rom[i] = byte(i >> 12)
	}
	return rom
}

// testCPU is a scriptable stand-in for the external 8051 interpreter.
// Each Step runs the next scripted bus operation (or idles) and
// consumes one cycle. Pin traffic is recorded so tests can watch the
// machine drive CSYNC and the interrupt lines.
type testCPU struct {
	bus CPUBus

	program []func(bus CPUBus)
	pc      int

	in  map[Pin]bool // levels the machine drives into us
	out map[Pin]bool // levels our "firmware" drives

	csyncFalls int
	csyncRises int
}

func newTestCPU(bus CPUBus) *testCPU {
	return &testCPU{
		bus: bus,
		in:  map[Pin]bool{PinP30: true, PinP32: true, PinP33: true, PinP34: true},
		out: map[Pin]bool{PinP31: true, PinP15: true},
	}
}

// testCPUFactory adapts newTestCPU to Config.NewCPU and hands the
// created CPU back for scripting.
func testCPUFactory(out **testCPU) func(CPUBus) CPU {
	return func(bus CPUBus) CPU {
		c := newTestCPU(bus)
		*out = c
		return c
	}
}

func (c *testCPU) Step() int {
	if c.pc < len(c.program) {
		c.program[c.pc](c.bus)
		c.pc++
	}
	return 1
}

func (c *testCPU) SetPin(pin Pin, level bool) {
	if pin == PinP34 {
		if c.in[pin] && !level {
			c.csyncFalls++
		}
		if !c.in[pin] && level {
			c.csyncRises++
		}
	}
	c.in[pin] = level
}

func (c *testCPU) Pin(pin Pin) bool {
	return c.out[pin]
}

func (c *testCPU) script(ops ...func(bus CPUBus)) {
	c.program = append(c.program, ops...)
}

func busWrite(addr uint16, val uint8) func(bus CPUBus) {
	return func(bus CPUBus) { bus.Write(addr, val) }
}

// newTestMachine builds a machine around a scripted CPU.
func newTestMachine(cfg Config) (*Machine, *testCPU, error) {
	var cpu *testCPU
	cfg.NewCPU = testCPUFactory(&cpu)
	m, err := NewMachine(createTestROM(), cfg)
	return m, cpu, err
}
