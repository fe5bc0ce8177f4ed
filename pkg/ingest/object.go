package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectScheme prefixes snapshot locations held in S3-compatible storage.
const ObjectScheme = "s3://"

// objectTimeout bounds one object transfer.
const objectTimeout = 60 * time.Second

// ObjectStore is the subset of the S3 API snapshot transfer needs.
// *s3.Client satisfies it.
type ObjectStore interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	storeMu     sync.Mutex
	objectStore ObjectStore
)

// SetObjectStore replaces the client used for s3:// locations. By default
// one is built lazily from the standard AWS environment (credentials chain,
// AWS_REGION, AWS_ENDPOINT_URL).
func SetObjectStore(store ObjectStore) {
	storeMu.Lock()
	defer storeMu.Unlock()
	objectStore = store
}

func defaultObjectStore(ctx context.Context) (ObjectStore, error) {
	storeMu.Lock()
	defer storeMu.Unlock()
	if objectStore != nil {
		return objectStore, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	objectStore = s3.NewFromConfig(cfg)
	return objectStore, nil
}

// IsObjectURI reports whether path names an object rather than a file.
func IsObjectURI(path string) bool {
	return strings.HasPrefix(strings.ToLower(path), ObjectScheme)
}

// ParseObjectURI splits s3://bucket/key.
func ParseObjectURI(uri string) (bucket, key string, err error) {
	if !IsObjectURI(uri) {
		return "", "", fmt.Errorf("%q is not an %s URI", uri, ObjectScheme)
	}
	bucket, key, _ = strings.Cut(uri[len(ObjectScheme):], "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%q: want %sbucket/key", uri, ObjectScheme)
	}
	return bucket, key, nil
}

func readObject(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := ParseObjectURI(uri)
	if err != nil {
		return nil, err
	}
	store, err := defaultObjectStore(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, objectTimeout)
	defer cancel()
	out, err := store.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	return data, nil
}

func writeObject(ctx context.Context, uri string, data []byte) error {
	bucket, key, err := ParseObjectURI(uri)
	if err != nil {
		return err
	}
	store, err := defaultObjectStore(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, objectTimeout)
	defer cancel()
	contentType := "application/yaml"
	if strings.HasSuffix(strings.ToLower(key), CompressedExt) {
		contentType = "application/x-snappy"
	}
	_, err = store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", uri, err)
	}
	return nil
}
