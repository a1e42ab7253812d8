package main

import (
	"flag"
	"io"
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/mmastrac/blaze/cli"
	"github.com/mmastrac/blaze/emu"
	"github.com/mmastrac/blaze/romloader"
)

func main() {
	romPath := flag.String("rom", "", "path to the firmware image (e.g. 23-068E9-00.bin)")
	rateFlag := flag.Int("rate", 60, "refresh rate: 60 or 70")
	vramFlag := flag.Int("vram", 128, "video RAM size in KB: 64 or 128")
	nvramPath := flag.String("nvram", "", "path to the EEPROM backing file (optional)")
	textMode := flag.Bool("text", false, "run on the current terminal instead of a window")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("no firmware image: use -rom")
	}

	romData, romName, err := romloader.LoadROM(*romPath)
	if err != nil {
		log.Fatalf("Failed to load firmware: %v", err)
	}

	var rate emu.Rate
	switch *rateFlag {
	case 60:
		rate = emu.Rate60
	case 70:
		rate = emu.Rate70
	default:
		log.Fatalf("Invalid rate: %d (use 60 or 70)", *rateFlag)
	}

	var vramSize int
	switch *vramFlag {
	case 64:
		vramSize = 0x10000
	case 128:
		vramSize = 0x20000
	default:
		log.Fatalf("Invalid VRAM size: %d (use 64 or 128)", *vramFlag)
	}

	display := cli.NewDisplay()
	cfg := emu.Config{
		Rate:     rate,
		VRAMSize: vramSize,
		Display:  display,
		Comm:     [2]io.ReadWriter{&emu.Loopback{}, &emu.Loopback{}},
	}
	if *nvramPath != "" {
		cfg.NVRAM = &cli.FileNVRAM{Path: *nvramPath}
	}

	m, err := emu.NewMachine(romData, cfg)
	if err != nil {
		log.Fatalf("Failed to build machine: %v", err)
	}
	if m.NVRAMWarning != nil {
		log.Printf("nvram: %v (starting blank)", m.NVRAMWarning)
	}
	defer func() {
		if err := m.StoreNVRAM(); err != nil {
			log.Printf("nvram: %v", err)
		}
	}()

	if *textMode {
		host := cli.NewTextHost(m, display)
		if err := host.Run(); err != nil {
			log.Fatal(err)
		}
		return
	}

	timing := emu.GetTimingForRate(rate)
	ebiten.SetWindowSize(800, 480)
	ebiten.SetWindowTitle("blaze - " + romName)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(timing.FPS)

	runner := cli.NewRunner(m, display)
	if err := ebiten.RunGame(runner); err != nil {
		log.Fatal(err)
	}
}
