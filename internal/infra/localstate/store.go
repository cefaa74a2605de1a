// Package localstate persists a session's client-side stores as JSON
// blobs under logical keys, mirroring browser local storage. There is no
// versioning or migration scheme: a missing or corrupt blob loads as the
// zero value and the next save overwrites it (last write wins).
package localstate

import (
	"context"
	"encoding/json"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	"github.com/pkg/errors"
)

// Logical keys for the persisted session stores.
const (
	KeyAuth        = "customer-auth"
	KeyCart        = "customer-cart"
	KeyFavorites   = "customer-favorites"
	KeyBehavior    = "customer-behavior"
	KeyPreferences = "customer-preferences"
)

// Store is a JSON key-value store backed by a blob bucket.
type Store struct {
	bucket *blob.Bucket
}

// NewFileStore opens a store persisted under dir.
func NewFileStore(dir string) (*Store, error) {
	bucket, err := fileblob.OpenBucket(dir, &fileblob.Options{
		CreateDir: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open local state bucket")
	}

	return &Store{bucket: bucket}, nil
}

// NewMemStore opens an in-memory store. State does not survive the
// session; used in tests and when no state directory is configured.
func NewMemStore() *Store {
	return &Store{bucket: memblob.OpenBucket(nil)}
}

// Save marshals value and overwrites the blob under key.
func (s *Store) Save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal state for key %s", key)
	}

	if err := s.bucket.WriteAll(ctx, key, data, nil); err != nil {
		return errors.Wrapf(err, "failed to write state for key %s", key)
	}

	return nil
}

// Load unmarshals the blob under key into out. A missing or corrupt blob
// leaves out untouched and returns ok=false without an error; callers
// fall back to zero-valued stores.
func (s *Store) Load(ctx context.Context, key string, out any) (ok bool, err error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return false, nil
		}

		return false, errors.Wrapf(err, "failed to read state for key %s", key)
	}

	if err := json.Unmarshal(data, out); err != nil {
		// Corrupt blob: treat as absent rather than failing the session
		return false, nil
	}

	return true, nil
}

// Delete removes the blob under key. Deleting an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.bucket.Delete(ctx, key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return errors.Wrapf(err, "failed to delete state for key %s", key)
	}

	return nil
}

// Close releases the underlying bucket.
func (s *Store) Close() error {
	return errors.WithStack(s.bucket.Close())
}
