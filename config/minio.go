package config

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// InitMinioConnection connects to the object store and makes sure the
// configured bucket exists.
func InitMinioConnection(ctx context.Context, settings MinioSettings) (*minio.Client, error) {
	if !settings.Configured() {
		return nil, fmt.Errorf("[MINIO] MIO_HOST, MIO_ACCESS_ID, MIO_SECRET and MIO_BUCKET are required")
	}

	client, err := minio.New(settings.Host,
		&minio.Options{
			Creds:  credentials.NewStaticV4(settings.AccessID, settings.Secret, ""),
			Secure: settings.SSL,
		})
	if err != nil {
		return nil, fmt.Errorf("[MINIO] connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err = client.MakeBucket(ctx, settings.Bucket, minio.MakeBucketOptions{})
	if err != nil {
		exists, errBucketExists := client.BucketExists(ctx, settings.Bucket)
		if errBucketExists != nil || !exists {
			return nil, fmt.Errorf("[MINIO] couldn't create bucket %s: %w", settings.Bucket, err)
		}
	}

	return client, nil
}
