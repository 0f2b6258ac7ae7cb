package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore stores objects with minio client
type MinioStore struct {
	client *minio.Client
	bucket string
	base   string
}

// NewMinioStore creates minio store
func NewMinioStore(opts Options) (*MinioStore, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(opts.URL, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.User, opts.Key, ""),
		Secure: opts.Secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("can't init minio client: %w", err)
	}
	res := &MinioStore{client: client, bucket: opts.Bucket, base: publicBase(&opts)}
	goapp.Log.Info().Str("url", opts.URL).Str("bucket", opts.Bucket).Str("public", res.base).Msg("minio store")
	return res, nil
}

// EnsureBucket creates the bucket if it does not exist
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("can't check bucket: %w", err)
	}
	if ok {
		return nil
	}
	goapp.Log.Info().Str("bucket", s.bucket).Msg("creating bucket")
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("can't create bucket: %w", err)
	}
	return nil
}

// Put saves data and returns its public URL
func (s *MinioStore) Put(ctx context.Context, data []byte, path, contentType string) (string, error) {
	defer goapp.Estimate("minio put")()
	_, err := s.client.PutObject(ctx, s.bucket, path, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("can't put %s: %w", path, err)
	}
	goapp.Log.Info().Str("path", path).Int("size", len(data)).Msg("saved")
	return publicURL(s.base, path)
}

// Load returns object's data, utils.ErrNotFound if there is no such
func (s *MinioStore) Load(ctx context.Context, path string) ([]byte, error) {
	defer goapp.Estimate("minio load")()
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, minioErr(path, err)
	}
	defer obj.Close()
	res, err := io.ReadAll(obj)
	if err != nil {
		return nil, minioErr(path, err)
	}
	return res, nil
}

func minioErr(path string, err error) error {
	var errResp minio.ErrorResponse
	if errors.As(err, &errResp) && errResp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", path, utils.ErrNotFound)
	}
	return fmt.Errorf("can't load %s: %w", path, err)
}
