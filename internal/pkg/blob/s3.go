package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store stores objects with aws s3 client, works with R2 and other S3 compatible storages
type S3Store struct {
	client *s3.Client
	bucket string
	base   string
}

// NewS3Store creates s3 store
func NewS3Store(ctx context.Context, opts Options) (*S3Store, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	region := opts.Region
	if region == "" {
		region = "auto"
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.User, opts.Key, "")))
	if err != nil {
		return nil, fmt.Errorf("can't load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.URL)
		o.UsePathStyle = true
	})
	res := &S3Store{client: client, bucket: opts.Bucket, base: publicBase(&opts)}
	goapp.Log.Info().Str("url", opts.URL).Str("bucket", opts.Bucket).Str("public", res.base).Msg("s3 store")
	return res, nil
}

// Put saves data and returns its public URL
func (s *S3Store) Put(ctx context.Context, data []byte, path, contentType string) (string, error) {
	defer goapp.Estimate("s3 put")()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(path),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("can't put %s: %w", path, err)
	}
	goapp.Log.Info().Str("path", path).Int("size", len(data)).Msg("saved")
	return publicURL(s.base, path)
}

// Load returns object's data, utils.ErrNotFound if there is no such
func (s *S3Store) Load(ctx context.Context, path string) ([]byte, error) {
	defer goapp.Estimate("s3 load")()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%s: %w", path, utils.ErrNotFound)
		}
		return nil, fmt.Errorf("can't load %s: %w", path, err)
	}
	defer out.Body.Close()
	res, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("can't read %s: %w", path, err)
	}
	return res, nil
}
