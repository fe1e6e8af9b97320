package crdtstorage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// RedisAdapter stores each document's encoded bytes as a Redis string
// keyed by id, plus a companion JSON string for Record bookkeeping, with the
// id added to a set so ListRecords doesn't need a KEYS scan. Grounded
// on the teacher's luvjson/crdtstorage/redis_adapter.go (RedisAdapter):
// same key-prefix/document-set layout, storing this engine's own
// encoding instead of the teacher's serializer output.
type RedisAdapter struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisAdapter returns an adapter backed by client, namespacing all
// of its keys under keyPrefix.
func NewRedisAdapter(client *redis.Client, keyPrefix string) *RedisAdapter {
	return &RedisAdapter{client: client, keyPrefix: keyPrefix}
}

func (a *RedisAdapter) docKey(id string) string  { return fmt.Sprintf("%s:doc:%s", a.keyPrefix, id) }
func (a *RedisAdapter) metaKey(id string) string { return fmt.Sprintf("%s:meta:%s", a.keyPrefix, id) }
func (a *RedisAdapter) setKey() string           { return fmt.Sprintf("%s:docs", a.keyPrefix) }

func (a *RedisAdapter) SaveRecord(ctx context.Context, rec *Record) error {
	if err := a.client.Set(ctx, a.docKey(rec.ID), rec.Data, 0).Err(); err != nil {
		return errors.Wrap(err, "crdtstorage: save document to redis")
	}

	meta := fileMeta{
		LastModified: rec.LastModified.UnixNano(),
		Version:      rec.Version,
		Metadata:     rec.Metadata,
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return errors.Wrap(err, "crdtstorage: marshal document metadata")
	}
	if err := a.client.Set(ctx, a.metaKey(rec.ID), metaBytes, 0).Err(); err != nil {
		return errors.Wrap(err, "crdtstorage: save document metadata to redis")
	}

	if err := a.client.SAdd(ctx, a.setKey(), rec.ID).Err(); err != nil {
		return errors.Wrap(err, "crdtstorage: register document id in redis")
	}
	return nil
}

func (a *RedisAdapter) LoadRecord(ctx context.Context, id string) (*Record, error) {
	data, err := a.client.Get(ctx, a.docKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "crdtstorage: load document from redis")
	}

	rec := &Record{ID: id, Data: data}
	if metaBytes, err := a.client.Get(ctx, a.metaKey(id)).Bytes(); err == nil {
		var meta fileMeta
		if err := json.Unmarshal(metaBytes, &meta); err == nil {
			rec.Version = meta.Version
			rec.Metadata = meta.Metadata
			rec.LastModified = timeFromUnixNano(meta.LastModified)
		}
	}
	return rec, nil
}

func (a *RedisAdapter) ListRecords(ctx context.Context) ([]string, error) {
	ids, err := a.client.SMembers(ctx, a.setKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "crdtstorage: list documents in redis")
	}
	return ids, nil
}

func (a *RedisAdapter) DeleteRecord(ctx context.Context, id string) error {
	if err := a.client.Del(ctx, a.docKey(id), a.metaKey(id)).Err(); err != nil {
		return errors.Wrap(err, "crdtstorage: delete document from redis")
	}
	if err := a.client.SRem(ctx, a.setKey(), id).Err(); err != nil {
		return errors.Wrap(err, "crdtstorage: deregister document id in redis")
	}
	return nil
}

func (a *RedisAdapter) Close() error {
	return nil
}
