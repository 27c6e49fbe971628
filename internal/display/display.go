// Package display implements an optional Ebitengine-backed host window for
// the emulator. It is not a pixel renderer: the PPU this project drives is a
// register/timing stub with no frame buffer, so instead of blitting NES
// pixels the window renders a small heads-up view of CPU/PPU/APU register
// state and forwards keyboard input to controller 1 (the default keymap binds
// no keys to controller 2). It
// exists purely so the host loop has somewhere to run outside of the
// headless cycle-stepping path in cmd/gones.
package display

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"gones/internal/bus"
	"gones/internal/input"
)

const (
	windowWidth  = 480
	windowHeight = 270

	// NTSC: 29,781 CPU cycles per frame (89,342 PPU cycles / 3)
	cyclesPerFrame = 29781
)

// game implements ebiten.Game and drives the bus one frame at a time.
type game struct {
	bus     *bus.Bus
	title   string
	keymap  []keyBinding
}

type keyBinding struct {
	key     ebiten.Key
	button  input.Button
	player2 bool
}

func defaultKeymap() []keyBinding {
	return []keyBinding{
		{ebiten.KeyZ, input.ButtonA, false},
		{ebiten.KeyX, input.ButtonB, false},
		{ebiten.KeyShift, input.ButtonSelect, false},
		{ebiten.KeyEnter, input.ButtonStart, false},
		{ebiten.KeyUp, input.ButtonUp, false},
		{ebiten.KeyDown, input.ButtonDown, false},
		{ebiten.KeyLeft, input.ButtonLeft, false},
		{ebiten.KeyRight, input.ButtonRight, false},
	}
}

// Run opens a window titled with romName and drives bus until the window is
// closed. It blocks for the lifetime of the window.
func Run(b *bus.Bus, romName string) error {
	ebiten.SetWindowSize(windowWidth, windowHeight)
	ebiten.SetWindowTitle(fmt.Sprintf("gones - %s", romName))
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	g := &game{
		bus:    b,
		title:  romName,
		keymap: defaultKeymap(),
	}

	return ebiten.RunGame(g)
}

func (g *game) Update() error {
	g.processInput()
	g.bus.RunCycles(cyclesPerFrame)
	return nil
}

func (g *game) processInput() {
	input1 := g.bus.GetInputState().Controller1
	input2 := g.bus.GetInputState().Controller2

	for _, binding := range g.keymap {
		pressed := ebiten.IsKeyPressed(binding.key)
		if binding.player2 {
			input2.SetButton(binding.button, pressed)
		} else {
			input1.SetButton(binding.button, pressed)
		}
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	cpuState := g.bus.GetCPUState()
	ppuState := g.bus.GetPPUState()

	text := fmt.Sprintf(
		"%s\n\nCPU  PC:$%04X A:$%02X X:$%02X Y:$%02X SP:$%02X cyc:%d\nPPU  scanline:%d cycle:%d frame:%d vblank:%t rendering:%t\n",
		g.title,
		cpuState.PC, cpuState.A, cpuState.X, cpuState.Y, cpuState.SP, cpuState.Cycles,
		ppuState.Scanline, ppuState.Cycle, ppuState.FrameCount, ppuState.VBlankFlag, ppuState.RenderingOn,
	)
	ebitenutil.DebugPrint(screen, text)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}
