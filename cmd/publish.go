package cmd

import (
	"context"

	"github.com/FluidXR/loggrabber/internal/config"
	"github.com/FluidXR/loggrabber/internal/publish"
	"github.com/FluidXR/loggrabber/internal/rclone"
	"github.com/FluidXR/loggrabber/internal/s3store"

	"github.com/rs/zerolog/log"
)

// newPublisher builds a publisher for the destinations in cfg, or nil when
// none are configured.
func newPublisher(ctx context.Context, cfg *config.Config) *publish.Publisher {
	if len(cfg.Destinations) == 0 && cfg.S3.Bucket == "" {
		return nil
	}

	p := &publish.Publisher{Config: cfg}
	if rclone.Available() {
		p.Rclone = rclone.NewClient()
	}
	if cfg.S3.Bucket != "" {
		client, err := s3store.NewClient(ctx, cfg.S3.Bucket, cfg.S3.Region)
		if err != nil {
			log.Warn().Err(err).Msg("s3 upload disabled")
		} else {
			p.S3 = client
		}
	}
	return p
}
