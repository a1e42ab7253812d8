package emu

// Pin identifies a CPU port pin the machine is wired to. The 8051 core
// itself is an external collaborator; the machine only ever touches the
// pins below.
type Pin int

const (
	PinP30 Pin = iota // P3.0 RXD: keyboard serial into the CPU
	PinP31            // P3.1 TXD: keyboard serial out of the CPU
	PinP32            // P3.2 /INT0: MP (video processor) interrupt, active low
	PinP33            // P3.3 /INT1: DUART interrupt, active low
	PinP34            // P3.4 T0: CSYNC from the video processor, active low
	PinP15            // P1.5: host channel transport mux (RS-232 / RS-423)
)

// CPUBus is the external-memory view handed to the 8051 interpreter.
// MOVX accesses go through Read/Write; code fetches through Fetch.
// Implementations are small forwarding objects, never the whole machine.
type CPUBus interface {
	Fetch(addr uint16) uint8
	Read(addr uint16) uint8
	Write(addr uint16, val uint8)
}

// CPU is the port through which an external 8051 interpreter is driven.
// Step executes one instruction and returns the machine cycles consumed.
// SetPin drives an input pin as seen by the firmware; Pin reports the
// level of an output pin the firmware drives.
type CPU interface {
	Step() int
	SetPin(pin Pin, level bool)
	Pin(pin Pin) bool
}

// IdleCPU is a placeholder interpreter that burns cycles and drives all
// output pins high. It stands in wherever a real 8051 core has not been
// plugged into the CPU port, keeping the rest of the machine ticking.
type IdleCPU struct {
	pins map[Pin]bool
}

// NewIdleCPU returns an IdleCPU. The CPUBus argument matches the
// factory signature expected by Config.NewCPU and is ignored.
func NewIdleCPU(_ CPUBus) CPU {
	return &IdleCPU{pins: make(map[Pin]bool)}
}

// Step consumes one machine cycle without executing anything.
func (c *IdleCPU) Step() int { return 1 }

// SetPin records the level of an input pin.
func (c *IdleCPU) SetPin(pin Pin, level bool) {
	c.pins[pin] = level
}

// Pin reports output pins as idle high.
func (c *IdleCPU) Pin(pin Pin) bool {
	return true
}
