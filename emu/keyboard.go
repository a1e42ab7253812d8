package emu

// The LK201/LK401 link runs at 4800 baud, 8-N-1, on two dedicated CPU
// pins.
const (
	kbdCyclesPerBit = CPUClockHz / 4800
)

// Bytes the keyboard volunteers on the wire.
const (
	KbdAllUp     = 0xB3 // every key released
	KbdMetronome = 0xB4 // auto-repeat tick
	KbdIDFirst   = 0x01 // power-up report, first byte
)

// Commands the firmware sends down the link. Commands marked below
// carry one parameter byte.
const (
	CmdLEDsOn       = 0x13
	CmdLEDsOff      = 0x11
	CmdBellEnable   = 0x23
	CmdBellDisable  = 0xA1
	CmdRingBell     = 0xA7
	CmdClickEnable  = 0x1B
	CmdClickDisable = 0x99
	CmdRequestID    = 0xAB
	CmdPowerUp      = 0xFD
)

var kbdCmdHasParam = map[uint8]bool{
	CmdLEDsOn:      true,
	CmdLEDsOff:     true,
	CmdBellEnable:  true,
	CmdClickEnable: true,
}

// Division auto-repeat behaviour.
const (
	modeDown       = 0 // transmit on down only
	modeAutoRepeat = 1 // down, then metronome while held
	modeDownUp     = 2 // transmit on both transitions
)

// keyDivisions maps LK201 keycode ranges to divisions. The main
// array and cursor keys auto-repeat; function keys fire once;
// modifiers report both edges.
var keyDivisions = []struct {
	lo, hi uint8
	div    int
}{
	{0x56, 0x7D, 5}, // function key rows
	{0x80, 0xA5, 4}, // editing keypad
	{0xA6, 0xAB, 3}, // cursor keys
	{0xAC, 0xB2, 2}, // shift, ctrl, lock, compose
	{0xBC, 0xFF, 1}, // main array
}

var defaultDivisionModes = map[int]int{
	1: modeAutoRepeat,
	2: modeDownUp,
	3: modeAutoRepeat,
	4: modeAutoRepeat,
	5: modeDown,
}

func divisionOf(code uint8) int {
	for _, d := range keyDivisions {
		if code >= d.lo && code <= d.hi {
			return d.div
		}
	}
	return 1
}

// Auto-repeat defaults in CPU cycles: 300 ms delay, 30 Hz rate.
const (
	repeatDelayCycles    = CPUClockHz * 3 / 10
	repeatIntervalCycles = CPUClockHz / 30
)

// KeyEvent is a host key transition carrying an LK201 keycode.
type KeyEvent struct {
	Code uint8
	Down bool
}

// lineTx serialises bytes onto a pin with start/stop framing and
// correct inter-bit spacing. Idle level is high.
type lineTx struct {
	cyclesPerBit int
	queue        []uint8
	shift        uint16
	bits         int
	countdown    int
	level        bool
}

func newLineTx(cyclesPerBit int) lineTx {
	return lineTx{cyclesPerBit: cyclesPerBit, level: true}
}

func (t *lineTx) send(p ...uint8) {
	t.queue = append(t.queue, p...)
}

func (t *lineTx) idle() bool {
	return t.bits == 0 && t.countdown == 0 && len(t.queue) == 0
}

func (t *lineTx) tick(cycles int) {
	for cycles > 0 {
		if t.countdown == 0 {
			if t.bits == 0 {
				if len(t.queue) == 0 {
					t.level = true
					return
				}
				// Frame: start(0), eight data bits LSB first,
				// stop(1).
				t.shift = uint16(t.queue[0])<<1 | 0x200
				t.queue = t.queue[1:]
				t.bits = 10
			}
			t.level = t.shift&1 != 0
			t.shift >>= 1
			t.bits--
			t.countdown = t.cyclesPerBit
		}
		step := cycles
		if step > t.countdown {
			step = t.countdown
		}
		t.countdown -= step
		cycles -= step
	}
}

// lineRx samples a pin and reassembles bytes. The start edge arms a
// mid-bit sampler.
type lineRx struct {
	cyclesPerBit int
	sampling     bool
	countdown    int
	bits         int
	shift        uint16
	out          []uint8
}

func newLineRx(cyclesPerBit int) lineRx {
	return lineRx{cyclesPerBit: cyclesPerBit}
}

func (r *lineRx) tick(cycles int, level bool) {
	if !r.sampling {
		if !level {
			// Start bit: sample the first data bit one and a half
			// bit times in.
			r.sampling = true
			r.countdown = r.cyclesPerBit + r.cyclesPerBit/2
			r.bits = 0
			r.shift = 0
		}
		return
	}
	r.countdown -= cycles
	for r.countdown <= 0 {
		if r.bits < 8 {
			if level {
				r.shift |= 1 << r.bits
			}
			r.bits++
			r.countdown += r.cyclesPerBit
		} else {
			// Stop bit: a low here is a framing error and the byte
			// is dropped.
			if level {
				r.out = append(r.out, uint8(r.shift))
			}
			r.sampling = false
			return
		}
	}
}

func (r *lineRx) drain() []uint8 {
	if len(r.out) == 0 {
		return nil
	}
	out := r.out
	r.out = nil
	return out
}

// Keyboard models the LK201/LK401: the serial link on P3.0/P3.1 and
// the table-driven engine turning host key events into the byte
// stream.
type Keyboard struct {
	tx lineTx
	rx lineRx

	divModes map[int]int
	held     []uint8
	leds     uint8

	bellOn  bool
	bellVol uint8
	clickOn bool

	repeatCode      uint8
	repeatCountdown int
	repeating       bool

	// Two-byte command parsing.
	pendingCmd uint8
	wantParam  bool
}

func newKeyboard() *Keyboard {
	k := &Keyboard{
		tx: newLineTx(kbdCyclesPerBit),
		rx: newLineRx(kbdCyclesPerBit),
	}
	k.Reset()
	return k
}

// Reset re-runs power-up: modes back to defaults and the ID report
// queued on the wire.
func (k *Keyboard) Reset() {
	k.divModes = make(map[int]int, len(defaultDivisionModes))
	for d, m := range defaultDivisionModes {
		k.divModes[d] = m
	}
	k.held = k.held[:0]
	k.leds = 0
	k.bellOn = true
	k.bellVol = 4
	k.clickOn = true
	k.repeating = false
	k.pendingCmd = 0
	k.wantParam = false
	k.tx = newLineTx(kbdCyclesPerBit)
	k.rx = newLineRx(kbdCyclesPerBit)
	k.tx.send(KbdIDFirst, 0x00, 0x00, 0x00)
}

// LEDs returns the current LED mask, for host-side rendering.
func (k *Keyboard) LEDs() uint8 { return k.leds }

// Push accepts a host key event and queues the LK201 bytes it
// produces.
func (k *Keyboard) Push(ev KeyEvent) {
	div := divisionOf(ev.Code)
	mode := k.divModes[div]

	if ev.Down {
		k.held = append(k.held, ev.Code)
		k.tx.send(ev.Code)
		if mode == modeAutoRepeat {
			k.repeatCode = ev.Code
			k.repeatCountdown = repeatDelayCycles
			k.repeating = true
		}
		return
	}

	for i, c := range k.held {
		if c == ev.Code {
			k.held = append(k.held[:i], k.held[i+1:]...)
			break
		}
	}
	if k.repeating && k.repeatCode == ev.Code {
		k.repeating = false
	}
	if len(k.held) == 0 {
		k.tx.send(KbdAllUp)
	} else if mode == modeDownUp {
		k.tx.send(ev.Code)
	}
}

// Tick advances both UART directions against the CPU pins and runs
// auto-repeat.
func (k *Keyboard) Tick(cycles int, cpu CPU) {
	k.tx.tick(cycles)
	cpu.SetPin(PinP30, k.tx.level)

	k.rx.tick(cycles, cpu.Pin(PinP31))
	for _, b := range k.rx.drain() {
		k.command(b)
	}

	if k.repeating {
		k.repeatCountdown -= cycles
		for k.repeatCountdown <= 0 {
			k.tx.send(KbdMetronome)
			k.repeatCountdown += repeatIntervalCycles
		}
	}
}

// command interprets one byte from the firmware. Division-mode
// commands carry the division and mode in the byte itself; the rest
// are looked up, with unknown commands ignored.
func (k *Keyboard) command(b uint8) {
	if k.wantParam {
		k.wantParam = false
		switch k.pendingCmd {
		case CmdLEDsOn:
			k.leds |= b & 0x0F
		case CmdLEDsOff:
			k.leds &^= b & 0x0F
		case CmdBellEnable:
			k.bellOn = true
			k.bellVol = b & 0x07
		case CmdClickEnable:
			k.clickOn = true
		}
		return
	}

	// Set-division-mode: 1ddd xmm1 (division in bits 6-4, mode in
	// bits 2-1, bit 3 ignored).
	if b&0x81 == 0x81 && !kbdCmdHasParam[b] && b != KbdAllUp {
		switch b {
		case CmdBellDisable, CmdRingBell, CmdClickDisable, CmdRequestID, CmdPowerUp:
		default:
			div := int(b >> 4 & 0x07)
			mode := int(b >> 1 & 0x03)
			if div > 0 {
				k.divModes[div] = mode
			}
			return
		}
	}

	switch b {
	case CmdPowerUp:
		k.Reset()
	case CmdRequestID:
		k.tx.send(KbdIDFirst, 0x00)
	case CmdBellDisable:
		k.bellOn = false
	case CmdClickDisable:
		k.clickOn = false
	case CmdRingBell:
		// Audible only; no wire traffic.
	default:
		if kbdCmdHasParam[b] {
			k.pendingCmd = b
			k.wantParam = true
		}
	}
}
