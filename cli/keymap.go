package cli

import "github.com/hajimehoshi/ebiten/v2"

// LK201 keycodes for the keys the frontends forward. The main array
// occupies the top of the code space; cursor keys sit in their own
// division.
const (
	lkReturn = 0xBD
	lkDelete = 0xBC
	lkTab    = 0xBE
	lkSpace  = 0xD4
	lkShift  = 0xAE
	lkCtrl   = 0xAF
	lkUp     = 0xAA
	lkDown   = 0xA9
	lkLeft   = 0xA7
	lkRight  = 0xA8
)

// ebitenKeymap maps host keys to LK201 codes. Letter rows follow the
// LK201 main-array layout.
var ebitenKeymap = map[ebiten.Key]uint8{
	ebiten.KeyA: 0xC1, ebiten.KeyB: 0xD9, ebiten.KeyC: 0xCE,
	ebiten.KeyD: 0xCD, ebiten.KeyE: 0xCC, ebiten.KeyF: 0xD2,
	ebiten.KeyG: 0xD8, ebiten.KeyH: 0xDD, ebiten.KeyI: 0xE6,
	ebiten.KeyJ: 0xE2, ebiten.KeyK: 0xE7, ebiten.KeyL: 0xEC,
	ebiten.KeyM: 0xE3, ebiten.KeyN: 0xDE, ebiten.KeyO: 0xEB,
	ebiten.KeyP: 0xF0, ebiten.KeyQ: 0xC6, ebiten.KeyR: 0xD1,
	ebiten.KeyS: 0xC7, ebiten.KeyT: 0xD7, ebiten.KeyU: 0xE1,
	ebiten.KeyV: 0xD3, ebiten.KeyW: 0xCB, ebiten.KeyX: 0xC8,
	ebiten.KeyY: 0xDC, ebiten.KeyZ: 0xC2,

	ebiten.KeyDigit1: 0xC0, ebiten.KeyDigit2: 0xC5,
	ebiten.KeyDigit3: 0xCA, ebiten.KeyDigit4: 0xD0,
	ebiten.KeyDigit5: 0xD6, ebiten.KeyDigit6: 0xDB,
	ebiten.KeyDigit7: 0xE0, ebiten.KeyDigit8: 0xE5,
	ebiten.KeyDigit9: 0xEA, ebiten.KeyDigit0: 0xEF,

	ebiten.KeyEnter:       lkReturn,
	ebiten.KeyBackspace:   lkDelete,
	ebiten.KeyTab:         lkTab,
	ebiten.KeySpace:       lkSpace,
	ebiten.KeyShiftLeft:   lkShift,
	ebiten.KeyControlLeft: lkCtrl,
	ebiten.KeyArrowUp:     lkUp,
	ebiten.KeyArrowDown:   lkDown,
	ebiten.KeyArrowLeft:   lkLeft,
	ebiten.KeyArrowRight:  lkRight,
}

// asciiKeymap maps raw terminal bytes to LK201 codes for text mode.
// Letters fold to their unshifted key.
var asciiKeymap = func() map[byte]uint8 {
	m := map[byte]uint8{
		'\r': lkReturn,
		'\n': lkReturn,
		0x7F: lkDelete,
		0x08: lkDelete,
		'\t': lkTab,
		' ':  lkSpace,
	}
	letters := []uint8{
		0xC1, 0xD9, 0xCE, 0xCD, 0xCC, 0xD2, 0xD8, 0xDD, 0xE6,
		0xE2, 0xE7, 0xEC, 0xE3, 0xDE, 0xEB, 0xF0, 0xC6, 0xD1,
		0xC7, 0xD7, 0xE1, 0xD3, 0xCB, 0xC8, 0xDC, 0xC2,
	}
	for i := 0; i < 26; i++ {
		m['a'+byte(i)] = letters[i]
		m['A'+byte(i)] = letters[i]
	}
	digits := []uint8{0xEF, 0xC0, 0xC5, 0xCA, 0xD0, 0xD6, 0xDB, 0xE0, 0xE5, 0xEA}
	for i := 0; i < 10; i++ {
		m['0'+byte(i)] = digits[i]
	}
	return m
}()
