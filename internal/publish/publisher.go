package publish

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/FluidXR/loggrabber/internal/config"
	"github.com/FluidXR/loggrabber/internal/rclone"

	"github.com/rs/zerolog/log"
)

// Copier copies a local file to an rclone remote.
type Copier interface {
	Copy(ctx context.Context, localPath, dest string) error
	IsReachable(ctx context.Context, remote string) bool
}

// Uploader stores a local file in object storage and returns its location.
type Uploader interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}

// Publisher copies a finished archive to the configured destinations.
// A nil Rclone or S3 disables that kind of destination.
type Publisher struct {
	Rclone Copier
	S3     Uploader
	Config *config.Config
}

// Result is the outcome for one destination.
type Result struct {
	Destination string
	Location    string
	Err         string
}

// ObjectName is the name an archive is published under, unique per device
// and capture time so repeated runs never overwrite each other.
func ObjectName(archivePath, serial string, at time.Time) string {
	base := filepath.Base(archivePath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if serial != "" {
		stem += "-" + serial
	}
	return fmt.Sprintf("%s-%s%s", stem, at.UTC().Format("20060102T150405Z"), ext)
}

// Publish sends archivePath to every destination and reports each outcome.
// Failures never stop the remaining destinations.
func (p *Publisher) Publish(ctx context.Context, archivePath, serial string, at time.Time) []Result {
	name := ObjectName(archivePath, serial, at)
	var results []Result

	for _, dest := range p.Config.Destinations {
		r := Result{Destination: dest.Name, Location: rclone.Join(dest.RcloneRemote, name)}
		switch {
		case p.Rclone == nil:
			r.Err = "rclone is not installed"
		case !p.Rclone.IsReachable(ctx, dest.RcloneRemote):
			r.Err = "destination unreachable"
		default:
			if err := p.Rclone.Copy(ctx, archivePath, r.Location); err != nil {
				r.Err = err.Error()
			}
		}
		results = append(results, logResult(r))
	}

	if p.Config.S3.Bucket != "" {
		r := Result{Destination: "s3"}
		if p.S3 == nil {
			r.Err = "s3 client unavailable"
		} else {
			key := name
			if prefix := strings.Trim(p.Config.S3.Prefix, "/"); prefix != "" {
				key = prefix + "/" + name
			}
			loc, err := p.S3.Upload(ctx, archivePath, key)
			r.Location = loc
			if err != nil {
				r.Err = err.Error()
			}
		}
		results = append(results, logResult(r))
	}
	return results
}

func logResult(r Result) Result {
	if r.Err != "" {
		log.Error().Str("destination", r.Destination).Str("error", r.Err).Msg("failed to publish archive")
	} else {
		log.Info().Str("destination", r.Destination).Str("location", r.Location).Msg("published archive")
	}
	return r
}
