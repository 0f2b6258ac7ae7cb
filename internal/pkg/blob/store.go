// Package blob keeps audio, documents and media in S3 compatible object storage
package blob

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Options for object storage
type Options struct {
	Bucket string
	// URL is the API endpoint, host:port for minio, full URL for s3
	URL    string
	User   string
	Key    string
	Secure bool
	Region string
	// PublicURL is a base of returned public object URLs, empty - made from the endpoint and bucket
	PublicURL string
}

// Store puts and loads objects
type Store interface {
	Put(ctx context.Context, data []byte, path, contentType string) (string, error)
	Load(ctx context.Context, path string) ([]byte, error)
}

// NewStore creates the store of the type: minio (default) or s3
func NewStore(ctx context.Context, storeType string, opts Options) (Store, error) {
	switch storeType {
	case "s3":
		res, err := NewS3Store(ctx, opts)
		if err != nil {
			return nil, err
		}
		return res, nil
	case "", "minio":
		res, err := NewMinioStore(opts)
		if err != nil {
			return nil, err
		}
		if err := res.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return res, nil
	}
	return nil, fmt.Errorf("unknown blob type '%s'", storeType)
}

func (o *Options) validate() error {
	if o.Bucket == "" {
		return fmt.Errorf("no bucket")
	}
	if o.URL == "" {
		return fmt.Errorf("no url")
	}
	return nil
}

func publicBase(o *Options) string {
	if o.PublicURL != "" {
		return strings.TrimSuffix(o.PublicURL, "/")
	}
	u := o.URL
	if !strings.Contains(u, "://") {
		scheme := "http"
		if o.Secure {
			scheme = "https"
		}
		u = scheme + "://" + u
	}
	return strings.TrimSuffix(u, "/") + "/" + o.Bucket
}

func publicURL(base, path string) (string, error) {
	res, err := url.JoinPath(base, path)
	if err != nil {
		return "", fmt.Errorf("can't make url: %w", err)
	}
	return res, nil
}
