package emu

// Mapper register addresses (the 0x7FF0 control block).
const (
	RegScrollStart = 0x7FF0 // smooth-scroll start line
	RegScrollStop  = 0x7FF1 // smooth-scroll stop line
	RegScrollOff   = 0x7FF2 // smooth-scroll offset
	RegSession1    = 0x7FF3 // session-1 display control
	RegSession2    = 0x7FF4 // frame rate, VRAM topology, session-2 control
	RegMemSelect   = 0x7FF5 // SRAM/VRAM at 0x8000, ROM bank select
	RegRowGeom     = 0x7FF6 // two-shot row-height/line-count pair
	RegXOffset     = 0x7FF7 // horizontal screen offset, pixel tenths
	RegYOffset     = 0x7FF8 // vertical screen offset, pixel tenths
	RegMaxRows     = 0x7FFA // chargen row processing cap
	RegFontOffset  = 0x7FFC // two-shot per-screen font offset
)

// Shadow register addresses (the 0x7EE0 block). Pairs commit to the
// control block as two sequenced byte writes.
const (
	ShadowBase     = 0x7EE0
	ShadowGeomLo   = 0x7EE4 // first half of a 0x7FF6 commit
	ShadowGeomHi   = 0x7EE5 // second half; completes the commit
	ShadowFontLo   = 0x7EE6 // first half of a 0x7FFC commit
	ShadowFontHi   = 0x7EE7 // second half
	shadowRegCount = 32
)

// RegSession1 bits.
const (
	S1Strobe   = 0x80 // reset/strobe: 0xA0 primes the part
	S1Blink    = 0x40 // blink/watchdog tick; mirrored into 0x7FF6 reads
	S1VRAMPage = 0x20 // VRAM bank mapped at the window base
	S1Swizzle  = 0x10 // shadow-swizzle (session flip)
	S1Screen   = 0x08 // screen select: 0 = session 1, 1 = session 2
	S1Border   = 0x04 // any-session inverted border
	S1Invert   = 0x02 // session 1 invert
	S1Cols132  = 0x01 // session 1 column mode: 1 = 132, 0 = 80
)

// RegSession2 bits.
const (
	S2AltTopology = 0x40 // alternate VRAM topology
	S2Rate70      = 0x10 // 1 = 70 Hz, 0 = 60 Hz
	S2PageFlip    = 0x08 // page flip; mirrored into 0x7FF6 reads
	S2Invert      = 0x02 // session 2 invert
	S2Cols132     = 0x01 // session 2 column mode
)

// RegMemSelect bits.
const (
	MemVRAMHigh = 0x20 // 1 = VRAM at 0x8000, 0 = SRAM
	MemROMBank  = 0x04 // which 64 KiB half of ROM backs code space
)

// memSelectReset is the documented power-on value of 0x7FF5.
const memSelectReset = 0xF4

// rowGeometry maps documented 0x7FF6 encodings (high nibble = row
// height - 1, low nibble = encoded count) to line counts. Values
// outside the table are stored verbatim and decode by height alone.
var rowGeometry = map[uint8]int{
	0x78: 50, // 8-scan rows
	0x9A: 38, // 10-scan rows
	0xD0: 26, // 14-scan rows
	0xF0: 24, // 16-scan rows, status region
	0xFC: 24, // status variant
}

// decodeGeometry splits a row-geometry byte into scanlines-per-row and
// row count.
func decodeGeometry(v uint8) (height, rows int) {
	height = int(v>>4) + 1
	if n, ok := rowGeometry[v]; ok {
		return height, n
	}
	// Unknown encoding: fill the active raster at the encoded height,
	// bounded by the row table.
	rows = activeLines / height
	if rows > rowTableSize/2 {
		rows = rowTableSize / 2
	}
	return height, rows
}

// Mapper models the programmable half of the DC7166 video/memory
// processor: the control register file, the shadow block, VRAM and SRAM
// ownership, and ROM banking. The scanline side lives in vmp.go.
type Mapper struct {
	ctrl   [16]uint8
	shadow [shadowRegCount]uint8

	rom  []uint8
	sram [0x8000]uint8
	vram []uint8

	// Two-stage shadow pairs: true when the first half has been
	// written and the second is awaited. Reset on commit.
	geomHalf bool
	fontHalf bool

	// commitPending is raised when a 16-bit shadow commit completes
	// and cleared by the VMP once it has honoured the hold.
	commitPending bool

	// Two-shot registers alternate between screen 1 and screen 2.
	geomShot int
	geom     [2]uint8
	fontShot int
	fontOff  [2]uint8

	// Read-side chargen status surfaced through 0x7FF6.
	chargenRow uint8

	primed bool // 0xA0 strobe observed on 0x7FF3
}

func newMapper(rom []byte, vramSize int) *Mapper {
	m := &Mapper{
		rom:  make([]uint8, len(rom)),
		vram: make([]uint8, vramSize),
	}
	copy(m.rom, rom)
	m.Reset()
	return m
}

// Reset restores the documented power-on register values. VRAM and
// SRAM contents are preserved; only control state is reinitialised.
func (m *Mapper) Reset() {
	for i := range m.ctrl {
		m.ctrl[i] = 0
	}
	for i := range m.shadow {
		m.shadow[i] = 0
	}
	m.ctrl[RegMemSelect&0x0F] = memSelectReset
	m.ctrl[RegXOffset&0x0F] = 0x1E
	m.ctrl[RegYOffset&0x0F] = 0x1E
	m.ctrl[RegMaxRows&0x0F] = 0x35
	m.geomHalf = false
	m.fontHalf = false
	m.commitPending = false
	m.geomShot = 0
	m.fontShot = 0
	m.geom = [2]uint8{}
	m.fontOff = [2]uint8{}
	m.chargenRow = 0
	m.primed = false
}

// WriteReg handles a CPU write into the 0x7FF0 control block.
func (m *Mapper) WriteReg(addr uint16, val uint8) {
	idx := addr & 0x0F
	m.ctrl[idx] = val

	switch addr {
	case RegRowGeom:
		// Two-shot: first write sets screen 1 geometry, second
		// screen 2, then the sequence restarts.
		m.geom[m.geomShot] = val
		m.geomShot ^= 1
	case RegFontOffset:
		m.fontOff[m.fontShot] = val
		m.fontShot ^= 1
	case RegSession1:
		if val == 0xA0 {
			m.primed = true
		}
	}
}

// ReadReg handles a CPU read from the 0x7FF0 control block.
func (m *Mapper) ReadReg(addr uint16) uint8 {
	if addr == RegRowGeom {
		// Read-side of the two-shot register is the chargen status:
		// rows processed so far, plus the blink and page-flip bits.
		// A read after a partial write advances the row pointer.
		if m.geomShot != 0 {
			m.advanceChargen()
		}
		status := m.chargenRow & 0x3F
		if m.ctrl[RegSession1&0x0F]&S1Blink != 0 {
			status |= 0x40
		}
		if m.ctrl[RegSession2&0x0F]&S2PageFlip != 0 {
			status |= 0x80
		}
		return status
	}
	return m.ctrl[addr&0x0F]
}

// WriteShadow records a write into the 0x7EE0 block and runs the
// two-stage commit protocol for the 16-bit pairs.
func (m *Mapper) WriteShadow(addr uint16, val uint8) {
	m.shadow[addr-ShadowBase] = val

	switch addr {
	case ShadowGeomLo:
		m.geomHalf = true
	case ShadowGeomHi:
		if m.geomHalf {
			m.geomHalf = false
			m.WriteReg(RegRowGeom, m.shadow[ShadowGeomLo-ShadowBase])
			m.WriteReg(RegRowGeom, m.shadow[ShadowGeomHi-ShadowBase])
			m.commitPending = true
		}
	case ShadowFontLo:
		m.fontHalf = true
	case ShadowFontHi:
		if m.fontHalf {
			m.fontHalf = false
			m.WriteReg(RegFontOffset, m.shadow[ShadowFontLo-ShadowBase])
			m.WriteReg(RegFontOffset, m.shadow[ShadowFontHi-ShadowBase])
			m.commitPending = true
		}
	}
}

// ReadShadow returns the last byte recorded in the shadow block.
func (m *Mapper) ReadShadow(addr uint16) uint8 {
	return m.shadow[addr-ShadowBase]
}

// windowBase returns the VRAM offset backing the CPU window, selected
// by the 0x7FF3 page bit. Parts smaller than 128 KiB wrap into the
// single bank through the index mask.
func (m *Mapper) windowBase() int {
	if m.ctrl[RegSession1&0x0F]&S1VRAMPage != 0 {
		return 0x10000
	}
	return 0
}

func (m *Mapper) vramIndex(off int) int {
	return off & (len(m.vram) - 1)
}

// ReadWindow reads VRAM through the CPU window at 0x0000-0x7FDF.
func (m *Mapper) ReadWindow(addr uint16) uint8 {
	return m.vram[m.vramIndex(m.windowBase()+int(addr))]
}

// WriteWindow writes VRAM through the CPU window.
func (m *Mapper) WriteWindow(addr uint16, val uint8) {
	m.vram[m.vramIndex(m.windowBase()+int(addr))] = val
}

// highIsVRAM reports whether 0x8000-0xFFFF currently maps VRAM.
func (m *Mapper) highIsVRAM() bool {
	return m.ctrl[RegMemSelect&0x0F]&MemVRAMHigh != 0
}

// ReadHigh reads the 0x8000-0xFFFF data region: the upper 32 KiB of
// the current VRAM bank, or SRAM, per 0x7FF5 bit 5.
func (m *Mapper) ReadHigh(addr uint16) uint8 {
	if m.highIsVRAM() {
		return m.vram[m.vramIndex(m.windowBase()+int(addr))]
	}
	return m.sram[addr-0x8000]
}

// WriteHigh writes the 0x8000-0xFFFF data region.
func (m *Mapper) WriteHigh(addr uint16, val uint8) {
	if m.highIsVRAM() {
		m.vram[m.vramIndex(m.windowBase()+int(addr))] = val
		return
	}
	m.sram[addr-0x8000] = val
}

// FetchROM resolves a code-space fetch against the ROM half selected
// by 0x7FF5 bit 2. Bank flips take effect on the next fetch.
func (m *Mapper) FetchROM(addr uint16) uint8 {
	base := 0
	if m.ctrl[RegMemSelect&0x0F]&MemROMBank != 0 {
		base = 0x10000
	}
	i := base + int(addr)
	if i >= len(m.rom) {
		return 0xFF
	}
	return m.rom[i]
}

// Rate returns the refresh rate selected by 0x7FF4 bit 4.
func (m *Mapper) Rate() Rate {
	if m.ctrl[RegSession2&0x0F]&S2Rate70 != 0 {
		return Rate70
	}
	return Rate60
}

// ScreenGeometry returns the committed row geometry for a screen
// (0 or 1).
func (m *Mapper) ScreenGeometry(screen int) (height, rows int) {
	return decodeGeometry(m.geom[screen&1])
}

// FontOffset returns the committed font offset for a screen.
func (m *Mapper) FontOffset(screen int) uint8 {
	return m.fontOff[screen&1]
}

// yOffsetLines converts the 0x7FF8 pixel-tenths offset to scanlines.
func (m *Mapper) yOffsetLines() int {
	return int(m.ctrl[RegYOffset&0x0F]) / 10
}

// maxChargenRows returns the 0x7FFA cap on rows processed per frame.
func (m *Mapper) maxChargenRows() uint8 {
	return m.ctrl[RegMaxRows&0x0F] & 0x3F
}

func (m *Mapper) advanceChargen() {
	if m.chargenRow < m.maxChargenRows() {
		m.chargenRow++
	}
}

// takeCommit consumes a pending shadow-commit hold, if any.
func (m *Mapper) takeCommit() bool {
	p := m.commitPending
	m.commitPending = false
	return p
}
