// Command fetch-platform-tools downloads the platform-tools archives that
// loggrabber embeds. It runs from `go generate ./internal/platformtools`.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/FluidXR/loggrabber/internal/platformtools"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const baseURL = "https://dl.google.com/android/repository/"

func main() {
	dir := flag.String("dir", "archives", "directory to store the archives in")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", *dir).Msg("create archive dir")
	}

	client := &http.Client{Timeout: 10 * time.Minute}
	for _, goos := range platformtools.Platforms {
		if _, err := platformtools.Download(ctx, client, baseURL, goos, *dir); err != nil {
			log.Fatal().Err(err).Str("goos", goos).Msg("failed to download platform-tools")
		}
	}
}
