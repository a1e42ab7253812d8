package emu

import "testing"

// TestBus_SRAMRoundTrip tests write/read through the 0x8000 region
// with SRAM selected.
func TestBus_SRAMRoundTrip(t *testing.T) {
	m, _, err := newTestMachine(Config{})
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	bus := m.Bus()

	// Power-on maps VRAM at 0x8000 (0x7FF5 = 0xF4); select SRAM.
	bus.Write(RegMemSelect, memSelectReset&^MemVRAMHigh)

	testCases := []struct {
		addr uint16
		val  uint8
	}{
		{0x8000, 0x42},
		{0x8001, 0xFF},
		{0xCFFF, 0xAB},
		{0xFFFF, 0x12},
	}
	for _, tc := range testCases {
		bus.Write(tc.addr, tc.val)
		if got := bus.Read(tc.addr); got != tc.val {
			t.Errorf("SRAM[0x%04X]: expected 0x%02X, got 0x%02X", tc.addr, tc.val, got)
		}
	}
}

// TestBus_VRAMWindowRoundTrip tests the paged VRAM window below the
// device registers.
func TestBus_VRAMWindowRoundTrip(t *testing.T) {
	m, _, err := newTestMachine(Config{})
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	bus := m.Bus()

	testCases := []struct {
		addr uint16
		val  uint8
	}{
		{0x0000, 0x11},
		{0x1FFF, 0x22},
		{0x7EDF, 0x33}, // last byte before the shadow carve-out
		{0x7F00, 0x44}, // window resumes after the shadow block
		{0x7FDF, 0x55}, // top of the window
	}
	for _, tc := range testCases {
		bus.Write(tc.addr, tc.val)
		if got := bus.Read(tc.addr); got != tc.val {
			t.Errorf("window[0x%04X]: expected 0x%02X, got 0x%02X", tc.addr, tc.val, got)
		}
	}

	// The window is backed by VRAM proper.
	if got := m.Mapper().vram[0x1FFF]; got != 0x22 {
		t.Errorf("vram[0x1FFF]: expected 0x22, got 0x%02X", got)
	}
}

// TestBus_VRAMWindowPaging tests that the 0x7FF3 page bit moves the
// window to the second 64KB bank.
func TestBus_VRAMWindowPaging(t *testing.T) {
	m, _, err := newTestMachine(Config{})
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	bus := m.Bus()

	bus.Write(0x0100, 0xA1)
	bus.Write(RegSession1, S1VRAMPage)
	bus.Write(0x0100, 0xB2)

	if got := m.Mapper().vram[0x0100]; got != 0xA1 {
		t.Errorf("bank 0 vram[0x0100]: expected 0xA1, got 0x%02X", got)
	}
	if got := m.Mapper().vram[0x10100]; got != 0xB2 {
		t.Errorf("bank 1 vram[0x0100]: expected 0xB2, got 0x%02X", got)
	}

	bus.Write(RegSession1, 0)
	if got := bus.Read(0x0100); got != 0xA1 {
		t.Errorf("bank 0 readback: expected 0xA1, got 0x%02X", got)
	}
}

// TestBus_HighVRAM tests that 0x7FF5 bit 5 maps VRAM into
// 0x8000-0xFFFF instead of SRAM.
func TestBus_HighVRAM(t *testing.T) {
	m, _, err := newTestMachine(Config{})
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	bus := m.Bus()

	// Power-on state already selects VRAM.
	bus.Write(0x9000, 0x77)
	if got := m.Mapper().vram[0x9000]; got != 0x77 {
		t.Errorf("vram[0x9000]: expected 0x77, got 0x%02X", got)
	}

	// Flip to SRAM: same address now reads independent storage.
	bus.Write(RegMemSelect, memSelectReset&^MemVRAMHigh)
	bus.Write(0x9000, 0x88)
	if got := bus.Read(0x9000); got != 0x88 {
		t.Errorf("sram[0x9000]: expected 0x88, got 0x%02X", got)
	}
	if got := m.Mapper().vram[0x9000]; got != 0x77 {
		t.Errorf("vram[0x9000] after SRAM write: expected 0x77, got 0x%02X", got)
	}

	// Exactly one backing store responds at a time.
	bus.Write(RegMemSelect, memSelectReset)
	if got := bus.Read(0x9000); got != 0x77 {
		t.Errorf("vram readback after flip: expected 0x77, got 0x%02X", got)
	}
}

// TestBus_ROMBanking tests scenario: with 0x7FF5 bit 2 clear a code
// fetch at 0x8000 returns ROM byte 0x08000; with it set, 0x18000.
func TestBus_ROMBanking(t *testing.T) {
	m, _, err := newTestMachine(Config{})
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	bus := m.Bus()

	bus.Write(RegMemSelect, memSelectReset&^MemROMBank)
	if got := bus.Fetch(0x8000); got != 0x08 {
		t.Errorf("bank 0 fetch at 0x8000: expected 0x08, got 0x%02X", got)
	}
	bus.Write(RegMemSelect, memSelectReset|MemROMBank)
	if got := bus.Fetch(0x8000); got != 0x18 {
		t.Errorf("bank 1 fetch at 0x8000: expected 0x18, got 0x%02X", got)
	}
	if got := bus.Fetch(0x0000); got != 0x10 {
		t.Errorf("bank 1 fetch at 0x0000: expected 0x10, got 0x%02X", got)
	}
}

// TestBus_UnmappedReads tests that reserved DUART offsets read 0xFF.
func TestBus_UnmappedReads(t *testing.T) {
	m, _, err := newTestMachine(Config{})
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	if got := m.Bus().Read(0x7FEC); got != 0xFF {
		t.Errorf("reserved DUART register: expected 0xFF, got 0x%02X", got)
	}
}

// TestBus_DUARTRouting tests that 0x7FE0-0x7FEF reaches the DUART.
func TestBus_DUARTRouting(t *testing.T) {
	m, _, err := newTestMachine(Config{})
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	bus := m.Bus()

	bus.Write(0x7FE0+DregSet, 0x30)
	if got := m.DUART().OutputPort(); got != 0x30 {
		t.Errorf("output port after set: expected 0x30, got 0x%02X", got)
	}
	bus.Write(0x7FE0+DregClr, 0x10)
	if got := m.DUART().OutputPort(); got != 0x20 {
		t.Errorf("output port after reset: expected 0x20, got 0x%02X", got)
	}
}
