// Package app wires the system bus, configuration, and ROM loading together
// into the application a host (headless runner or the optional display GUI)
// drives.
package app

import (
	"errors"
	"fmt"
	"os"

	"gones/internal/bus"
	"gones/internal/cartridge"
)

// Application represents the NES emulator application
type Application struct {
	bus *bus.Bus

	config *Config

	initialized bool

	romPath   string
	cartridge *cartridge.Cartridge
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("Application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

// NewApplication creates a new NES emulator application
func NewApplication(configPath string) (*Application, error) {
	app := &Application{
		config: NewConfig(),
	}

	if configPath != "" {
		if err := app.config.LoadFromFile(configPath); err != nil {
			fmt.Printf("[APP_WARNING] Could not load config from %s, using defaults: %v\n", configPath, err)
		}
	}

	app.bus = bus.New()
	app.initialized = true

	return app, nil
}

// LoadROM loads a ROM file into the emulator
func (app *Application) LoadROM(romPath string) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	cart, err := cartridge.LoadFromFile(romPath)
	if err != nil {
		return &ApplicationError{
			Component: "cartridge",
			Operation: "load ROM",
			Err:       err,
		}
	}

	app.cartridge = cart
	app.romPath = romPath

	app.bus.LoadCartridge(cart)
	app.bus.Reset()

	return nil
}

// RunCycles advances the emulator by the given number of CPU cycles. It is
// the headless driving loop; the optional GUI in internal/display drives the
// same bus from its own frame-paced loop instead of calling this.
func (app *Application) RunCycles(cycles uint64) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}
	if app.cartridge == nil {
		return errors.New("no ROM loaded")
	}

	app.bus.RunCycles(cycles)
	return nil
}

// GetBus returns the system bus
func (app *Application) GetBus() *bus.Bus {
	return app.bus
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *Config {
	return app.config
}

// GetROMPath returns the path of the currently loaded ROM
func (app *Application) GetROMPath() string {
	return app.romPath
}

// Reset resets the emulated system to power-on state
func (app *Application) Reset() {
	if app.bus != nil {
		app.bus.Reset()
	}
}

// ApplyDebugSettings applies the current debug configuration to the bus and
// its components. Debug categories are opt-in via environment variables
// because they carry a real per-instruction performance cost.
func (app *Application) ApplyDebugSettings() {
	if app.config == nil || app.bus == nil {
		return
	}

	app.bus.EnableInputDebug(app.config.Debug.EnableLogging)
	if app.config.Debug.EnableLogging {
		fmt.Printf("[INPUT_DEBUG] Input debug logging enabled\n")
	}

	if !app.config.Debug.EnableLogging || app.romPath == "" {
		return
	}

	if os.Getenv("GONES_DEBUG_MEMORY") == "1" {
		app.bus.EnableWatchpointLogging(true)
		fmt.Printf("[DEBUG] Memory watchpoint logging enabled (GONES_DEBUG_MEMORY=1)\n")
	}

	if os.Getenv("GONES_DEBUG_CPU") == "1" {
		app.bus.EnableCPUDebug(true)
		fmt.Printf("[DEBUG] CPU debug logging enabled (GONES_DEBUG_CPU=1)\n")
	}
}

// Cleanup releases all resources held by the application
func (app *Application) Cleanup() error {
	if app.config != nil && app.config.Debug.EnableLogging {
		fmt.Println("[APP_DEBUG] Cleaning up application resources...")
	}
	app.initialized = false
	return nil
}
