// Package main is the production entry point for the visual player.
//
// The visual player plays an audio file and draws its spectrum as bars on
// an offscreen surface rendered by a background worker.
//
// Build:
//
//	go build -o build/visualplayer ./cmd
//
// Run:
//
//	./build/visualplayer [-options visualizer.yaml] [-mock] [file.mp3]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tejashwikalptaru/visualplayer/internal/app"
)

func main() {
	// Create default configuration
	config := app.DefaultConfig()

	flag.StringVar(&config.OptionsPath, "options", config.OptionsPath, "YAML file of visualizer options")
	flag.StringVar(&config.ResolverPolicy, "resolver", config.ResolverPolicy, `acknowledgement policy: "queue" or "replace"`)
	flag.BoolVar(&config.UseMockAudio, "mock", false, "use a scripted spectrum instead of audio")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println(app.GetVersionInfo().FullString())
		return
	}
	config.MediaPath = flag.Arg(0)

	// Create the application with dependency injection
	application, err := app.NewApplication(config)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Ensure a graceful shutdown
	defer func() {
		if err := application.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
		}
	}()

	// Run application (blocks until the window closed)
	if err := application.Run(); err != nil {
		log.Printf("Application error: %v", err)
	}
}
