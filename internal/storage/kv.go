package storage

import "context"

// KV is the minimal key-value surface the collection store needs: get a
// value by key (reporting absence without error), replace it whole, and
// answer a liveness probe.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
}
