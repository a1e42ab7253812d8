// Package cli provides host frontends for the emulator core: an
// ebiten window and a raw-terminal text mode. It handles input
// polling and frame presentation; the core never touches the host.
package cli

import (
	"os"

	"github.com/mmastrac/blaze/emu"
)

// FrameStore keeps the latest vertical-blank capture for whichever
// frontend is presenting.
type FrameStore struct {
	latest *emu.Frame
}

// Frame implements emu.Display.
func (s *FrameStore) Frame(f *emu.Frame) {
	s.latest = f
}

// glyphRune maps a cell's glyph index to a displayable rune. The
// printable ASCII column maps through; everything else renders as a
// space. DEC special graphics are not reconstructed here.
func glyphRune(g uint8) rune {
	if g >= 0x20 && g < 0x7F {
		return rune(g)
	}
	return ' '
}

// rowString flattens one captured row to text.
func rowString(r emu.FrameRow) string {
	out := make([]rune, len(r.Cells))
	for i, c := range r.Cells {
		out[i] = glyphRune(c.Glyph)
	}
	return string(out)
}

// FileNVRAM persists the EEPROM snapshot in a host file.
type FileNVRAM struct {
	Path string
}

func (n *FileNVRAM) Load() ([]byte, error) {
	return os.ReadFile(n.Path)
}

func (n *FileNVRAM) Store(data []byte) error {
	return os.WriteFile(n.Path, data, 0644)
}
