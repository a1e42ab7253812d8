package cli

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/mmastrac/blaze/emu"
)

// TextHost runs the machine against a raw host terminal: stdin bytes
// become LK201 key events and each vertical-blank capture repaints
// the screen with ANSI attributes.
type TextHost struct {
	machine *emu.Machine
	store   *FrameStore

	fd       int
	oldState *term.State
	stop     chan struct{}
}

// NewTextHost wraps a machine built with the given frame store.
func NewTextHost(m *emu.Machine, store *FrameStore) *TextHost {
	return &TextHost{
		machine: m,
		store:   store,
		stop:    make(chan struct{}),
	}
}

// Run puts stdin in raw mode and drives the machine at the selected
// frame rate until Stop or a read error.
func (h *TextHost) Run() error {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	h.oldState = oldState
	defer h.restore()

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		return fmt.Errorf("failed to set nonblocking stdin: %w", err)
	}
	defer syscall.SetNonblock(h.fd, false)

	fmt.Print("\x1b[2J")

	timing := emu.GetTimingForRate(h.machine.Mapper().Rate())
	frame := time.Second / time.Duration(timing.FPS)
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	buf := make([]byte, 1)
	for {
		select {
		case <-h.stop:
			return nil
		case <-ticker.C:
		}

		for {
			n, err := syscall.Read(h.fd, buf)
			if n == 0 || err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				break
			}
			if err != nil {
				return err
			}
			if buf[0] == 0x03 { // ctrl-C leaves the session
				return nil
			}
			h.pushByte(buf[0])
		}

		h.machine.RunFrame()
		h.paint()
	}
}

// Stop ends the Run loop.
func (h *TextHost) Stop() {
	close(h.stop)
}

func (h *TextHost) restore() {
	if h.oldState != nil {
		_ = term.Restore(h.fd, h.oldState)
		h.oldState = nil
	}
	fmt.Print("\x1b[0m\x1b[2J\x1b[H")
}

// pushByte turns one raw terminal byte into a key press/release pair.
// The host terminal gives no release timing, so keys tap.
func (h *TextHost) pushByte(b byte) {
	code, ok := asciiKeymap[b]
	if !ok {
		return
	}
	h.machine.PushKey(emu.KeyEvent{Code: code, Down: true})
	h.machine.PushKey(emu.KeyEvent{Code: code, Down: false})
}

// paint repaints the whole frame. Bold, reverse, and blink attributes
// map to their SGR equivalents.
func (h *TextHost) paint() {
	f := h.store.latest
	if f == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString("\x1b[H")
	for _, row := range f.Rows {
		var attr uint8
		for _, c := range row.Cells {
			if c.Attr != attr {
				attr = c.Attr
				sb.WriteString("\x1b[0m")
				if attr&emu.AttrBold != 0 {
					sb.WriteString("\x1b[1m")
				}
				if attr&emu.AttrReverse != 0 {
					sb.WriteString("\x1b[7m")
				}
				if attr&emu.AttrBlink != 0 {
					sb.WriteString("\x1b[5m")
				}
			}
			sb.WriteRune(glyphRune(c.Glyph))
		}
		sb.WriteString("\x1b[0m\x1b[K\r\n")
	}
	fmt.Print(sb.String())
}
