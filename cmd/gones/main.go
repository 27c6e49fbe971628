// Package main implements the gones NES emulator executable.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gones/internal/app"
	"gones/internal/display"
	"gones/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		gui     = flag.Bool("gui", false, "Open an Ebitengine window showing register/timing state")
		debug   = flag.Bool("debug", false, "Enable debug logging")
		config  = flag.String("config", "", "Path to configuration file")
		help    = flag.Bool("help", false, "Show help message")
		showVer = flag.Bool("version", false, "Show version information")
	)
	flag.Usage = printUsage
	flag.Parse()

	if *help {
		printUsage()
		return 0
	}

	if *showVer {
		version.PrintBuildInfo()
		return 0
	}

	if flag.NArg() != 1 {
		printUsage()
		return 2
	}
	romPath := flag.Arg(0)

	configPath := *config
	if configPath == "" {
		configPath = app.GetDefaultConfigPath()
	}

	application, err := app.NewApplication(configPath)
	if err != nil {
		log.Printf("failed to create application: %v", err)
		return 1
	}
	defer application.Cleanup()

	if *debug {
		application.GetConfig().UpdateDebug(true, false, false)
		application.ApplyDebugSettings()
	}

	if err := application.LoadROM(romPath); err != nil {
		log.Printf("failed to load ROM: %v", err)
		return 1
	}

	if *debug {
		application.ApplyDebugSettings()
	}

	if *gui {
		romName := romPath
		if err := display.Run(application.GetBus(), romName); err != nil {
			log.Printf("display closed with error: %v", err)
			return 1
		}
		return 0
	}

	return runHeadless(application)
}

// runHeadless steps the bus forward until SIGINT/SIGTERM, printing nothing
// on the golden path.
func runHeadless(application *app.Application) int {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	const cyclesPerBatch = 29781 // one NTSC frame worth of CPU cycles

	for {
		select {
		case <-stop:
			return 0
		default:
			if err := application.RunCycles(cyclesPerBatch); err != nil {
				fmt.Fprintf(os.Stderr, "emulation error: %v\n", err)
				return 1
			}
		}
	}
}

func printUsage() {
	fmt.Println("gones - a cycle-accurate NES emulator core")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  gones <rom.nes>           Run headless until interrupted")
	fmt.Println("  gones -gui <rom.nes>      Run with a register/timing viewer window")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
}
