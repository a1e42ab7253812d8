package emu

import "testing"

func newTestMapper() *Mapper {
	return newMapper(createTestROM(), 0x20000)
}

// TestMapper_ResetValues tests the documented power-on register
// state.
func TestMapper_ResetValues(t *testing.T) {
	m := newTestMapper()

	if got := m.ReadReg(RegMemSelect); got != 0xF4 {
		t.Errorf("0x7FF5 at reset: expected 0xF4, got 0x%02X", got)
	}
	if got := m.ReadReg(RegXOffset); got != 0x1E {
		t.Errorf("0x7FF7 at reset: expected 0x1E, got 0x%02X", got)
	}
	if got := m.ReadReg(RegYOffset); got != 0x1E {
		t.Errorf("0x7FF8 at reset: expected 0x1E, got 0x%02X", got)
	}
	if got := m.ReadReg(RegMaxRows); got != 0x35 {
		t.Errorf("0x7FFA at reset: expected 0x35, got 0x%02X", got)
	}
	if m.primed {
		t.Error("mapper primed before the 0xA0 strobe")
	}
	m.WriteReg(RegSession1, 0xA0)
	if !m.primed {
		t.Error("mapper not primed after the 0xA0 strobe")
	}
}

// TestMapper_GeometryDecode tests the documented row-geometry
// encodings and the verbatim fallback.
func TestMapper_GeometryDecode(t *testing.T) {
	testCases := []struct {
		val    uint8
		height int
		rows   int
	}{
		{0x78, 8, 50},
		{0x9A, 10, 38},
		{0xD0, 14, 26},
		{0xF0, 16, 24},
		{0xFC, 16, 24},
		{0x90, 10, 41}, // unknown: 417/10, stored verbatim
	}
	for _, tc := range testCases {
		h, r := decodeGeometry(tc.val)
		if h != tc.height || r != tc.rows {
			t.Errorf("geometry 0x%02X: expected (%d, %d), got (%d, %d)",
				tc.val, tc.height, tc.rows, h, r)
		}
	}
}

// TestMapper_TwoShotGeometry tests that successive 0x7FF6 writes land
// on screen 1 then screen 2.
func TestMapper_TwoShotGeometry(t *testing.T) {
	m := newTestMapper()

	m.WriteReg(RegRowGeom, 0x9A)
	m.WriteReg(RegRowGeom, 0xF0)

	if h, r := m.ScreenGeometry(0); h != 10 || r != 38 {
		t.Errorf("screen 1 geometry: expected (10, 38), got (%d, %d)", h, r)
	}
	if h, r := m.ScreenGeometry(1); h != 16 || r != 24 {
		t.Errorf("screen 2 geometry: expected (16, 24), got (%d, %d)", h, r)
	}

	// The sequence restarts: a third write hits screen 1 again.
	m.WriteReg(RegRowGeom, 0x78)
	if h, r := m.ScreenGeometry(0); h != 8 || r != 50 {
		t.Errorf("screen 1 after restart: expected (8, 50), got (%d, %d)", h, r)
	}
}

// TestMapper_ShadowCommit tests the two-stage 0x7EE4/0x7EE5 pair:
// both bytes written commits them to 0x7FF6 in order.
func TestMapper_ShadowCommit(t *testing.T) {
	m := newTestMapper()

	m.WriteShadow(ShadowGeomLo, 0x9A)
	if h, r := m.ScreenGeometry(0); h != 1 || r != 128 {
		t.Errorf("geometry committed by a half write: got (%d, %d)", h, r)
	}
	if m.commitPending {
		t.Error("commit pending after only the first half")
	}

	m.WriteShadow(ShadowGeomHi, 0xF0)
	if h, r := m.ScreenGeometry(0); h != 10 || r != 38 {
		t.Errorf("screen 1 after commit: expected (10, 38), got (%d, %d)", h, r)
	}
	if h, r := m.ScreenGeometry(1); h != 16 || r != 24 {
		t.Errorf("screen 2 after commit: expected (16, 24), got (%d, %d)", h, r)
	}
	if !m.commitPending {
		t.Error("no commit hold raised")
	}
}

// TestMapper_ShadowSecondHalfAlone tests that a stray write to the
// second half commits nothing.
func TestMapper_ShadowSecondHalfAlone(t *testing.T) {
	m := newTestMapper()

	m.WriteShadow(ShadowGeomHi, 0xF0)
	if h, r := m.ScreenGeometry(0); h != 1 || r != 128 {
		t.Errorf("stray second-half write committed: got (%d, %d)", h, r)
	}
	if m.commitPending {
		t.Error("commit pending after a stray second-half write")
	}

	// The recorded byte is still observable.
	if got := m.ReadShadow(ShadowGeomHi); got != 0xF0 {
		t.Errorf("shadow readback: expected 0xF0, got 0x%02X", got)
	}
}

// TestMapper_FontShadowCommit tests the 0x7EE6/0x7EE7 pair feeding
// the per-screen font offsets.
func TestMapper_FontShadowCommit(t *testing.T) {
	m := newTestMapper()

	m.WriteShadow(ShadowFontLo, 0x02)
	m.WriteShadow(ShadowFontHi, 0x00)

	if got := m.FontOffset(0); got != 0x02 {
		t.Errorf("screen 1 font offset: expected 0x02, got 0x%02X", got)
	}
	if got := m.FontOffset(1); got != 0x00 {
		t.Errorf("screen 2 font offset: expected 0x00, got 0x%02X", got)
	}
	if !m.commitPending {
		t.Error("no commit hold raised for the font pair")
	}
}

// TestMapper_ChargenStatusRead tests the read side of 0x7FF6: the
// row counter plus the blink and page-flip mirrors, and the pointer
// advance on a read after a partial write.
func TestMapper_ChargenStatusRead(t *testing.T) {
	m := newTestMapper()

	if got := m.ReadReg(RegRowGeom); got != 0x00 {
		t.Errorf("chargen status at reset: expected 0x00, got 0x%02X", got)
	}

	// A partial two-shot write makes the next read advance the row
	// pointer.
	m.WriteReg(RegRowGeom, 0x9A)
	if got := m.ReadReg(RegRowGeom); got != 0x01 {
		t.Errorf("status after partial write + read: expected 0x01, got 0x%02X", got)
	}

	m.WriteReg(RegSession1, S1Blink)
	m.WriteReg(RegSession2, S2PageFlip)
	got := m.ReadReg(RegRowGeom)
	if got&0x40 == 0 {
		t.Errorf("blink bit not mirrored: got 0x%02X", got)
	}
	if got&0x80 == 0 {
		t.Errorf("page-flip bit not mirrored: got 0x%02X", got)
	}
}

// TestMapper_ChargenRowCap tests that the row counter saturates at
// the 0x7FFA limit.
func TestMapper_ChargenRowCap(t *testing.T) {
	m := newTestMapper()
	m.WriteReg(RegMaxRows, 0x03)
	for i := 0; i < 10; i++ {
		m.advanceChargen()
	}
	if got := m.chargenRow; got != 0x03 {
		t.Errorf("chargen row cap: expected 0x03, got 0x%02X", got)
	}
}

// TestMapper_UnknownBitsVerbatim tests that writes with unassigned
// bits read back unchanged.
func TestMapper_UnknownBitsVerbatim(t *testing.T) {
	m := newTestMapper()
	m.WriteReg(RegScrollStart, 0x3F)
	if got := m.ReadReg(RegScrollStart); got != 0x3F {
		t.Errorf("0x7FF0 readback: expected 0x3F, got 0x%02X", got)
	}
	m.WriteReg(RegSession2, 0x80|S2AltTopology)
	if got := m.ReadReg(RegSession2); got != 0x80|S2AltTopology {
		t.Errorf("0x7FF4 readback: expected 0x%02X, got 0x%02X", 0x80|S2AltTopology, got)
	}
}

// TestMapper_RateSelect tests the 0x7FF4 refresh-rate bit.
func TestMapper_RateSelect(t *testing.T) {
	m := newTestMapper()
	if got := m.Rate(); got != Rate60 {
		t.Errorf("rate at reset: expected 60Hz, got %v", got)
	}
	m.WriteReg(RegSession2, S2Rate70)
	if got := m.Rate(); got != Rate70 {
		t.Errorf("rate with bit 4 set: expected 70Hz, got %v", got)
	}
}
