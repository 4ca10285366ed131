// Package objectstore keeps job text and synthesized audio in a NATS JetStream
// object bucket.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/juanvolpe/voiceJuan/internal/core"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	errFmtCreateBucket = "failed to create object store bucket '%s': %w"
	errFmtBindBucket   = "failed to bind to existing object store bucket '%s': %w"
	errFmtGet          = "failed to get object '%s' from bucket '%s': %w"
	errFmtRead         = "failed to read object '%s': %w"
	errFmtClose        = "failed to close object '%s': %w"
	errFmtPut          = "failed to put object '%s' to bucket '%s': %w"
	errFmtDelete       = "failed to delete object '%s' from bucket '%s': %w"
	errFmtNotFound     = "%w: '%s' in bucket '%s'"

	bucketDescription = "Voice service job text and synthesized audio."
)

var (
	// ErrNotFound is returned when a key is not in the bucket.
	ErrNotFound = errors.New("object not found")
	// ErrEmptyKey is returned for an empty object key.
	ErrEmptyKey = errors.New("object key cannot be empty")
)

// Store is a core.ObjectStore on a JetStream object bucket.
type Store struct {
	bucket string
	store  nats.ObjectStore
}

var _ core.ObjectStore = (*Store)(nil)

// New creates the bucket, or binds to it when it already exists.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*Store, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: bucketDescription,
		TTL:         0,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf(errFmtCreateBucket, bucketName, err)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf(errFmtBindBucket, bucketName, err)
		}
	}

	return &Store{bucket: bucketName, store: store}, nil
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

// Download reads the whole object stored under key.
func (s *Store) Download(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	obj, err := s.store.Get(key)
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return nil, fmt.Errorf(errFmtNotFound, ErrNotFound, key, s.bucket)
		}

		return nil, fmt.Errorf(errFmtGet, key, s.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf(errFmtRead, key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf(errFmtClose, key, closeErr)
	}

	return data, nil
}

// Upload stores data under key, replacing any previous object.
func (s *Store) Upload(_ context.Context, key string, data []byte) error {
	if key == "" {
		return ErrEmptyKey
	}

	_, err := s.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: "",
		Headers:     nil,
		Metadata:    nil,
		Opts:        nil,
	}, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf(errFmtPut, key, s.bucket, err)
	}

	return nil
}

// Delete removes key. A missing key is not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	err := s.store.Delete(key)
	if err != nil && !errors.Is(err, nats.ErrObjectNotFound) {
		return fmt.Errorf(errFmtDelete, key, s.bucket, err)
	}

	return nil
}
