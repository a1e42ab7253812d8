package cli

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/mmastrac/blaze/emu"
)

// DebugPrint glyph metrics.
const (
	cellW = 6
	cellH = 16
)

// Runner wraps a machine in an ebiten window. It polls the host
// keyboard into LK201 events and presents the vertical-blank capture;
// the machine itself runs one frame per Update, so emulated time
// tracks the window's ticks-per-second.
type Runner struct {
	machine *emu.Machine
	store   *FrameStore
}

// NewRunner creates a Runner around a machine built with the returned
// store as its Display.
func NewRunner(m *emu.Machine, store *FrameStore) *Runner {
	return &Runner{machine: m, store: store}
}

// NewDisplay returns the Display implementation to pass into
// emu.Config before the machine is constructed.
func NewDisplay() *FrameStore {
	return &FrameStore{}
}

// Update implements ebiten.Game.
func (r *Runner) Update() error {
	if ebiten.IsFocused() {
		r.pollInput()
	}
	r.machine.RunFrame()
	return nil
}

// Draw implements ebiten.Game.
func (r *Runner) Draw(screen *ebiten.Image) {
	f := r.store.latest
	if f == nil {
		return
	}
	if f.Inverted {
		screen.Fill(color.White)
	}
	y := 0
	for _, row := range f.Rows {
		ebitenutil.DebugPrintAt(screen, rowString(row), 0, y)
		if row.DoubleTop || row.DoubleBottom {
			y += cellH * 2
		} else {
			y += cellH
		}
	}
}

// Layout implements ebiten.Game.
func (r *Runner) Layout(outsideWidth, outsideHeight int) (int, int) {
	cols, rows := 80, 24
	if f := r.store.latest; f != nil {
		rows = len(f.Rows)
		for _, row := range f.Rows {
			if row.Columns > cols {
				cols = row.Columns
			}
		}
	}
	return cols * cellW, rows * cellH
}

// pollInput forwards host key transitions as LK201 events.
func (r *Runner) pollInput() {
	for key, code := range ebitenKeymap {
		if inpututil.IsKeyJustPressed(key) {
			r.machine.PushKey(emu.KeyEvent{Code: code, Down: true})
		}
		if inpututil.IsKeyJustReleased(key) {
			r.machine.PushKey(emu.KeyEvent{Code: code, Down: false})
		}
	}
}
