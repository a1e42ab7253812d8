package emu

import (
	"errors"
	"io"
)

// Name and Version identify the core to frontends.
const (
	Name    = "blaze"
	Version = "0.3.0"
)

// ROMSize is the VT420 firmware image size: two 64 KiB banks.
const ROMSize = 0x20000

// Construction errors.
var (
	ErrROMTooSmall       = errors.New("rom image too small")
	ErrROMTooLarge       = errors.New("rom image too large")
	ErrNVRAMSizeMismatch = errors.New("nvram image size mismatch")
)

// Display receives the raster capture once per simulated vertical
// blank.
type Display interface {
	Frame(*Frame)
}

// NVRAM persists the EEPROM contents across runs. Load is consulted
// once at construction; Store may be called by the host whenever the
// machine is not ticking.
type NVRAM interface {
	Load() ([]byte, error)
	Store([]byte) error
}

// Config selects the machine variant and plugs in the host
// collaborators. Zero values give a 128 KiB-VRAM, 64×16-EEPROM,
// two-session machine with an idle CPU and no host connections.
type Config struct {
	Rate     Rate // refresh rate latched into 0x7FF4 at reset
	VRAMSize int  // 0x20000 or 0x10000
	EEPROM   EEPROMOrg
	Sessions int

	NewCPU  func(CPUBus) CPU
	Display Display
	Comm    [2]io.ReadWriter // 0 = host channel, 1 = printer channel
	NVRAM   NVRAM
}

// Machine is the whole terminal: every device owned by inclusion,
// advanced in lockstep by Tick. Within one tick the order is fixed:
// CPU step, VMP, DUART, EEPROM, then host I/O drain, so a device
// write is observable by anything sampled later in the same tick.
type Machine struct {
	mapper   *Mapper
	vmp      *VMP
	duart    *DUART
	eeprom   *EEPROM
	keyboard *Keyboard
	ssu      *SSU
	bus      *Bus
	cpu      CPU

	display Display
	comm    [2]io.ReadWriter
	nvram   NVRAM

	// Session bytes refused for lack of outbound credit wait here
	// rather than being dropped.
	commHold []uint8

	cycles uint64
	rate   Rate

	// NVRAMWarning records a load-size mismatch; the EEPROM falls
	// back to all-ones and the machine runs on.
	NVRAMWarning error
}

// NewMachine builds a machine around a firmware image.
func NewMachine(rom []byte, cfg Config) (*Machine, error) {
	if len(rom) < ROMSize {
		return nil, ErrROMTooSmall
	}
	if len(rom) > ROMSize {
		return nil, ErrROMTooLarge
	}

	vramSize := cfg.VRAMSize
	if vramSize == 0 {
		vramSize = 0x20000
	}
	newCPU := cfg.NewCPU
	if newCPU == nil {
		newCPU = NewIdleCPU
	}

	m := &Machine{
		mapper:  newMapper(rom, vramSize),
		duart:   newDUART(),
		eeprom:  newEEPROM(cfg.EEPROM),
		ssu:     newSSU(cfg.Sessions),
		display: cfg.Display,
		comm:    cfg.Comm,
		nvram:   cfg.NVRAM,
		rate:    cfg.Rate,
	}
	m.vmp = newVMP(m.mapper)
	m.keyboard = newKeyboard()
	m.bus = newBus(m.mapper, m.duart)
	m.cpu = newCPU(m.bus)

	if m.nvram != nil {
		if data, err := m.nvram.Load(); err == nil && len(data) > 0 {
			if err := m.LoadNVRAM(data); err != nil {
				m.NVRAMWarning = err
			}
		}
	}

	m.Reset()
	return m, nil
}

// Reset reinitialises every device to its power-on state. ROM, VRAM,
// SRAM and EEPROM contents are preserved.
func (m *Machine) Reset() {
	m.mapper.Reset()
	if m.rate == Rate70 {
		m.mapper.ctrl[RegSession2&0x0F] |= S2Rate70
	}
	m.vmp.Reset()
	m.duart.Reset()
	m.keyboard.Reset()
	m.cycles = 0
}

// Device accessors for frontends and tests.
func (m *Machine) Bus() *Bus           { return m.bus }
func (m *Machine) Mapper() *Mapper     { return m.mapper }
func (m *Machine) VMP() *VMP           { return m.vmp }
func (m *Machine) DUART() *DUART       { return m.duart }
func (m *Machine) EEPROM() *EEPROM     { return m.eeprom }
func (m *Machine) Keyboard() *Keyboard { return m.keyboard }
func (m *Machine) SSU() *SSU           { return m.ssu }
func (m *Machine) CPU() CPU            { return m.cpu }

// Cycles returns the simulated CPU cycles elapsed since reset.
func (m *Machine) Cycles() uint64 { return m.cycles }

// PushKey hands a host key event to the keyboard.
func (m *Machine) PushKey(ev KeyEvent) {
	m.keyboard.Push(ev)
}

// MuxRS423 reports the channel-B transport selected by P1.5.
func (m *Machine) MuxRS423() bool {
	return m.cpu.Pin(PinP15)
}

// Tick advances the whole machine by one CPU instruction and returns
// the cycles consumed.
func (m *Machine) Tick() int {
	c := m.cpu.Step()
	if c <= 0 {
		c = 1
	}

	if f := m.vmp.Tick(c); f != nil && m.display != nil {
		m.display.Frame(f)
	}

	m.duart.Tick(c)

	// The EEPROM hangs off the DUART output port; sample the pins
	// after the DUART has absorbed this instruction's writes.
	opr := m.duart.OutputPort()
	m.eeprom.Update(opr&OpEEPROMCS != 0, opr&OpEEPROMCLK != 0, opr&OpEEPROMDO != 0)
	m.eeprom.Tick(c)
	m.duart.SetEEPROMPins(m.eeprom.DO(), m.eeprom.Ready())

	m.keyboard.Tick(c, m.cpu)
	m.drainIO()

	// Interrupts are levels; both lines are active low.
	m.cpu.SetPin(PinP32, !m.vmp.MPInt())
	m.cpu.SetPin(PinP33, !m.duart.IRQ())
	m.cpu.SetPin(PinP34, m.vmp.CSYNC())

	m.cycles += uint64(c)
	return c
}

// RunCycles ticks until at least n cycles have elapsed.
func (m *Machine) RunCycles(n int) {
	for n > 0 {
		n -= m.Tick()
	}
}

// RunFrame ticks until the next vertical blank has been captured.
func (m *Machine) RunFrame() {
	target := m.vmp.frameCount + 1
	for m.vmp.frameCount < target {
		m.Tick()
	}
}

// drainIO moves bytes between the DUART, the SSU engine, and the host
// pipes. The engine sits on the host channel; the printer channel is
// a raw pipe.
func (m *Machine) drainIO() {
	// Terminal → host: channel B transmit goes through the engine.
	for _, b := range m.duart.TakeTX(ChanB) {
		_ = m.ssu.Feed(b)
	}
	// Engine wire output back into channel B receive.
	if out := m.ssu.TakeOutput(); len(out) > 0 {
		m.duart.FeedRX(ChanB, out)
	}

	if host := m.comm[0]; host != nil {
		// Session 0 data out to the host pipe.
		if data := m.ssu.SessionRead(0); len(data) > 0 {
			_, _ = host.Write(data)
		}
		// Host pipe in, through any bytes still waiting on credit.
		if len(m.commHold) == 0 {
			var buf [256]uint8
			if n, _ := host.Read(buf[:]); n > 0 {
				m.commHold = append(m.commHold, buf[:n]...)
			}
		}
		if len(m.commHold) > 0 {
			n, _ := m.ssu.SessionWrite(0, m.commHold)
			m.commHold = m.commHold[n:]
			if len(m.commHold) == 0 {
				m.commHold = nil
			}
		}
	}

	if printer := m.comm[1]; printer != nil {
		if out := m.duart.TakeTX(ChanA); len(out) > 0 {
			_, _ = printer.Write(out)
		}
		var buf [64]uint8
		if n, _ := printer.Read(buf[:]); n > 0 {
			m.duart.FeedRX(ChanA, buf[:n])
		}
	}
}

// LoadNVRAM replaces the EEPROM contents from a persistence snapshot.
// On a size mismatch the part is left erased to all-ones and
// ErrNVRAMSizeMismatch is returned.
func (m *Machine) LoadNVRAM(data []byte) error {
	words := m.eeprom.Words()
	want := len(words) * 2
	if m.eeprom.wordBits == 8 {
		want = len(words)
	}
	if len(data) != want {
		m.eeprom.Erase()
		return ErrNVRAMSizeMismatch
	}
	if m.eeprom.wordBits == 8 {
		for i := range words {
			words[i] = uint16(data[i])
		}
		return nil
	}
	for i := range words {
		words[i] = uint16(data[2*i]) | uint16(data[2*i+1])<<8
	}
	return nil
}

// SnapshotNVRAM serialises the EEPROM contents for persistence,
// little-endian for the 16-bit organisation.
func (m *Machine) SnapshotNVRAM() []byte {
	words := m.eeprom.Words()
	if m.eeprom.wordBits == 8 {
		out := make([]byte, len(words))
		for i, w := range words {
			out[i] = uint8(w)
		}
		return out
	}
	out := make([]byte, len(words)*2)
	for i, w := range words {
		out[2*i] = uint8(w)
		out[2*i+1] = uint8(w >> 8)
	}
	return out
}

// StoreNVRAM writes the EEPROM snapshot through the NVRAM port.
func (m *Machine) StoreNVRAM() error {
	if m.nvram == nil {
		return nil
	}
	return m.nvram.Store(m.SnapshotNVRAM())
}
