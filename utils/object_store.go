package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ichacara/attendance/config"
)

const (
	maxPictureSize    = 5 * 1024 * 1024 // 5 MB
	picturePathPrefix = "profile"
)

var (
	ErrFileTooBig      = errors.New("file size exceeds 5MB limit")
	ErrInvalidFileType = errors.New("invalid file type, only JPEG and PNG images are allowed")

	allowedPictureTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
	}
)

// ObjectStore uploads member profile pictures to an S3-compatible bucket.
type ObjectStore struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// NewObjectStore connects to the configured endpoint and ensures the bucket exists.
func NewObjectStore(cfg config.AppConfig) (*ObjectStore, error) {
	client, err := minio.New(cfg.StorageEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.StorageAccessKey, cfg.StorageSecretKey, ""),
		Secure: cfg.StorageUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	publicBase := cfg.StoragePublicBase
	if publicBase == "" {
		scheme := "http"
		if cfg.StorageUseSSL {
			scheme = "https"
		}
		publicBase = scheme + "://" + cfg.StorageEndpoint
	}

	store := &ObjectStore{
		client:     client,
		bucket:     cfg.StorageBucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, store.bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, store.bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return store, nil
}

// PutProfilePicture validates and uploads one picture, returning its public URL.
func (o *ObjectStore) PutProfilePicture(ctx context.Context, userID uint, r io.Reader, size int64, contentType string) (string, error) {
	if size > maxPictureSize {
		return "", ErrFileTooBig
	}
	ext, ok := allowedPictureTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", ErrInvalidFileType
	}

	key := fmt.Sprintf("%s/user-%d/%s%s", picturePathPrefix, userID, uuid.New().String(), ext)
	_, err := o.client.PutObject(ctx, o.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload picture: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", o.publicBase, o.bucket, key), nil
}
