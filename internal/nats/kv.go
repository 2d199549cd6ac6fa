package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// KVStore is a kv.Store on a JetStream key/value bucket. Clients sharing the
// bucket see each other's writes; the last writer wins.
type KVStore struct {
	kv      jetstream.KeyValue
	timeout time.Duration
}

// OpenKV binds to bucket, creating it when it does not exist yet.
func OpenKV(ctx context.Context, c *Client, bucket string) (*KVStore, error) {
	js := c.JetStream()

	kv, err := js.KeyValue(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "Local chat session cache",
			History:     1,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open key/value bucket %q: %w", bucket, err)
	}

	return &KVStore{kv: kv, timeout: 5 * time.Second}, nil
}

func (s *KVStore) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	entry, err := s.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return string(entry.Value()), true, nil
}

func (s *KVStore) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.kv.Put(ctx, key, []byte(value)); err != nil {
		return fmt.Errorf("failed to put %q: %w", key, err)
	}
	return nil
}

func (s *KVStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}
