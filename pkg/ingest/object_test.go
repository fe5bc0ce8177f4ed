package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory ObjectStore keyed by "bucket/key".
type memStore struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
}

func newMemStore(t *testing.T) *memStore {
	t.Helper()
	m := &memStore{objects: make(map[string][]byte), contentTypes: make(map[string]string)}
	SetObjectStore(m)
	t.Cleanup(func() { SetObjectStore(nil) })
	return m
}

func (m *memStore) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *memStore) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	m.objects[key] = data
	m.contentTypes[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestParseObjectURI(t *testing.T) {
	bucket, key, err := ParseObjectURI("s3://fabrics/prod/a.yaml.sz")
	require.NoError(t, err)
	assert.Equal(t, "fabrics", bucket)
	assert.Equal(t, "prod/a.yaml.sz", key)

	for _, bad := range []string{"s3://", "s3://bucket", "s3://bucket/", "s3:///key", "/tmp/a.yaml"} {
		_, _, err := ParseObjectURI(bad)
		assert.Error(t, err, bad)
	}

	assert.True(t, IsObjectURI("S3://Bucket/key"))
	assert.False(t, IsObjectURI("fabric.yaml"))
}

func TestObjectRoundTrip(t *testing.T) {
	store := newMemStore(t)
	doc, err := Decode(strings.NewReader(sampleDocument))
	require.NoError(t, err)

	for _, uri := range []string{"s3://fabrics/prod.yaml", "s3://fabrics/prod.yaml.sz"} {
		t.Run(uri, func(t *testing.T) {
			require.NoError(t, WriteFile(uri, doc))

			got, err := Open(uri, DumpOptions{})
			require.NoError(t, err)
			assert.Equal(t, doc, got)
		})
	}

	plain, err := snappy.Decode(nil, store.objects["fabrics/prod.yaml.sz"])
	require.NoError(t, err)
	assert.Equal(t, store.objects["fabrics/prod.yaml"], plain)
	assert.Equal(t, "application/x-snappy", store.contentTypes["fabrics/prod.yaml.sz"])
}

func TestObjectDump(t *testing.T) {
	store := newMemStore(t)
	store.objects["captures/arr1.txt"] = []byte(sampleDump)

	records, err := Load("s3://captures/arr1.txt", DumpOptions{ArrayName: "arr1"})
	require.NoError(t, err)
	assert.NotEmpty(t, records.Ports)
}

func TestObject_Missing(t *testing.T) {
	newMemStore(t)
	_, err := Open("s3://fabrics/missing.yaml", DumpOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://fabrics/missing.yaml")
}
