package emu

// EEPROMOrg selects the 5911 organisation.
type EEPROMOrg int

const (
	Org64x16 EEPROMOrg = iota // 64 words of 16 bits
	Org128x8                  // 128 words of 8 bits
)

// eepromBusyCycles is the deterministic program/erase time: ~5 ms of
// CPU clock.
const eepromBusyCycles = 4608

// Microwire shift states.
type eepromState int

const (
	eeIdle   eepromState = iota // CS low
	eeStart                     // CS high, waiting for the start bit
	eeShift                     // shifting opcode + address
	eeRead                      // shifting data out, MSB first
	eeWrite                     // shifting data in
	eeBusy                      // programming after CS dropped
)

// EEPROM models the serial NVRAM clocked through the DUART output
// port bits (CS, CLK, DO) with its data-out and ready lines fed back
// through the input port.
type EEPROM struct {
	org      EEPROMOrg
	words    []uint16
	wordBits int
	addrBits int

	state   eepromState
	lastCS  bool
	lastCLK bool

	shift   uint32 // opcode + address accumulator
	nbits   int    // bits collected in shift
	opcode  uint8
	addr    int
	data    uint16
	dataPos int

	out     bool // level on the data-out pin
	writeOK bool // EWEN latched
	busy    int  // remaining busy cycles
	pending func()
}

func newEEPROM(org EEPROMOrg) *EEPROM {
	e := &EEPROM{org: org}
	switch org {
	case Org128x8:
		e.words = make([]uint16, 128)
		e.wordBits = 8
		e.addrBits = 7
	default:
		e.words = make([]uint16, 64)
		e.wordBits = 16
		e.addrBits = 6
	}
	e.Erase()
	return e
}

// Erase resets the array to all ones, the blank state of the part.
// The write-enable latch is not affected.
func (e *EEPROM) Erase() {
	mask := e.wordMask()
	for i := range e.words {
		e.words[i] = mask
	}
}

func (e *EEPROM) wordMask() uint16 {
	return uint16(1<<e.wordBits - 1)
}

// Words exposes the array for persistence snapshots. The caller must
// not mutate it while the machine is ticking.
func (e *EEPROM) Words() []uint16 { return e.words }

// DO reports the level of the data-out pin (DUART IP3).
func (e *EEPROM) DO() bool { return e.out }

// Ready reports the ready/busy line (DUART IP4, high when ready).
func (e *EEPROM) Ready() bool { return e.busy == 0 }

// Tick burns down an in-progress program or erase cycle.
func (e *EEPROM) Tick(cycles int) {
	if e.busy > 0 {
		e.busy -= cycles
		if e.busy <= 0 {
			e.busy = 0
			// Ready raises the data-out line until the next select.
			e.out = true
		}
	}
}

// Update samples the chip-select, clock, and data-in pins as driven by
// the DUART output port. Dropping CS aborts whatever was in flight and
// commits a pending write or erase.
func (e *EEPROM) Update(cs, clk, di bool) {
	if cs != e.lastCS {
		e.lastCS = cs
		if cs {
			if e.busy == 0 {
				e.state = eeStart
				e.out = false
			}
		} else {
			if e.pending != nil {
				e.pending()
				e.pending = nil
				e.busy = eepromBusyCycles
				e.state = eeBusy
			} else if e.state != eeBusy {
				e.state = eeIdle
			}
			e.nbits = 0
			e.shift = 0
		}
	}

	rising := clk && !e.lastCLK
	e.lastCLK = clk
	if !rising || !cs || e.busy > 0 {
		return
	}

	switch e.state {
	case eeStart:
		// The start bit is the first 1 clocked in after select.
		if di {
			e.state = eeShift
			e.shift = 0
			e.nbits = 0
		}
	case eeShift:
		e.shift = e.shift<<1 | b2u32(di)
		e.nbits++
		if e.nbits == 2+e.addrBits {
			e.opcode = uint8(e.shift >> e.addrBits & 0x03)
			e.addr = int(e.shift & (1<<e.addrBits - 1))
			e.dispatch()
		}
	case eeRead:
		e.shiftOut()
	case eeWrite:
		e.data = e.data<<1 | uint16(b2u32(di))
		e.dataPos++
		if e.dataPos == e.wordBits {
			e.latchWrite()
		}
	}
}

// dispatch runs once the opcode and address are assembled.
func (e *EEPROM) dispatch() {
	switch e.opcode {
	case 0x02: // READ
		e.state = eeRead
		e.data = e.words[e.addr]
		e.dataPos = -1 // leading ready bit precedes the data
		e.out = false
	case 0x01: // WRITE
		e.state = eeWrite
		e.data = 0
		e.dataPos = 0
	case 0x03: // ERASE
		if e.writeOK {
			addr := e.addr
			e.pending = func() { e.words[addr] = e.wordMask() }
		}
		e.state = eeStart
	case 0x00:
		// Extended opcodes select on the top two address bits.
		switch e.addr >> (e.addrBits - 2) {
		case 0x03: // EWEN
			e.writeOK = true
		case 0x00: // EWDS
			e.writeOK = false
		case 0x02: // ERAL
			if e.writeOK {
				e.pending = func() { e.Erase() }
			}
		case 0x01: // WRAL
			e.state = eeWrite
			e.data = 0
			e.dataPos = 0
			return
		}
		e.state = eeStart
	}
}

// shiftOut presents the next READ bit: a leading 0, then data MSB
// first. Past the last bit the address wraps to the next word, as the
// part streams sequentially while clocked.
func (e *EEPROM) shiftOut() {
	if e.dataPos < 0 {
		e.out = false
		e.dataPos = 0
		return
	}
	if e.dataPos == e.wordBits {
		e.addr = (e.addr + 1) % len(e.words)
		e.data = e.words[e.addr]
		e.dataPos = 0
	}
	e.out = e.data&(1<<(e.wordBits-1-e.dataPos)) != 0
	e.dataPos++
}

// latchWrite arms the program cycle; it commits when CS drops.
// Without a preceding EWEN the data is silently discarded.
func (e *EEPROM) latchWrite() {
	if e.writeOK {
		addr := e.addr
		val := e.data & e.wordMask()
		all := e.opcode == 0x00 // WRAL
		e.pending = func() {
			if all {
				for i := range e.words {
					e.words[i] = val
				}
			} else {
				e.words[addr] = val
			}
		}
	}
	e.state = eeStart
}

func b2u32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
