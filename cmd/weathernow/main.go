package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/valpere/weathernow/internal/app"
	"github.com/valpere/weathernow/internal/config"
	"github.com/valpere/weathernow/internal/version"
)

func main() {
	// Command-line flags
	versionFlag := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	// Handle version flag
	if *versionFlag {
		info := version.GetInfo()
		fmt.Println(info.String())
		os.Exit(0)
	}

	log.Info().Msgf("Starting WeatherNow v%s", version.Version)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Create application context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create app")
	}

	startErr := make(chan error, 1)
	go func() {
		startErr <- server.Start(ctx)
	}()

	// Wait for interrupt signal or a listener failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-startErr:
		if err != nil {
			log.Error().Err(err).Msg("Server stopped unexpectedly")
		}
	}

	log.Info().Msg("Shutting down WeatherNow...")
	cancel()

	if err := server.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}

	log.Info().Msg("WeatherNow stopped gracefully")
}
