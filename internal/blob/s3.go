package blob

import (
	"context"

	infraS3 "vdypcore/internal/infra/blob/s3"
)

// S3Config re-exports the bucket configuration of the S3 driver.
type S3Config = infraS3.Config

// NewS3 returns an archive writing to the bucket described by cfg.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}
