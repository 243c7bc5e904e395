package s3store

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client uploads archives to a single S3 bucket.
type Client struct {
	api    putObjectAPI
	bucket string
}

// NewClient creates an S3 client using the default AWS credential chain.
func NewClient(ctx context.Context, bucket, region string) (*Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load AWS config")
	}
	return &Client{api: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// Upload stores the file at localPath under key and returns its s3:// URI.
func (c *Client) Upload(ctx context.Context, localPath, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", errors.Wrapf(err, "open %s", localPath)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.Wrapf(err, "stat %s", localPath)
	}

	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("application/zip"),
	})
	if err != nil {
		return "", errors.Wrapf(err, "put s3://%s/%s", c.bucket, key)
	}
	uri := "s3://" + c.bucket + "/" + key
	log.Debug().Str("uri", uri).Int64("size", info.Size()).Msg("uploaded archive")
	return uri, nil
}
