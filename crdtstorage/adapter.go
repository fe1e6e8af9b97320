// Package crdtstorage provides persistence adapters that save and load
// whole documents (via document.Document.Save/Load) against a choice of
// backing store, plus a Store façade that assigns new document ids and
// drives whichever adapter is configured. Grounded on the teacher's
// luvjson/crdtstorage package, which defines the same one-interface,
// many-adapters shape (PersistenceAdapter) for a CRDT document store.
package crdtstorage

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/nullctx/crdtdoc/common"
	"github.com/nullctx/crdtdoc/document"
)

// Record is the unit a PersistenceAdapter stores: a document's encoded
// bytes (document.Document.Save's output) plus the bookkeeping the
// teacher's Document type carries alongside content in its own store
// (luvjson/crdtstorage/document.go's Document struct).
type Record struct {
	ID           string
	Data         []byte
	LastModified time.Time
	Version      int
	Metadata     map[string]string
}

// PersistenceAdapter is the storage-backend seam of §2's domain stack:
// one interface, many backends (memory, file, Redis, MongoDB), matching
// the teacher's luvjson/crdtstorage.PersistenceAdapter exactly in
// shape, generalized from storing an opaque serializer's byte output to
// storing this engine's own document.Document.Save encoding.
type PersistenceAdapter interface {
	SaveRecord(ctx context.Context, rec *Record) error
	LoadRecord(ctx context.Context, id string) (*Record, error)
	ListRecords(ctx context.Context) ([]string, error)
	DeleteRecord(ctx context.Context, id string) error
	Close() error
}

// ErrNotFound is returned by an adapter's LoadRecord when id names no
// stored document.
var ErrNotFound = errors.New("crdtstorage: document not found")

// Store ties a PersistenceAdapter to document encode/decode, assigning
// new document ids with a snowflake.Node (§2: "snowflake for storage
// record keys") so ids sort roughly by creation time across actors
// without a shared counter.
type Store struct {
	adapter PersistenceAdapter
	ids     *idGenerator
}

// NewStore returns a Store backed by adapter, using nodeID to seed its
// snowflake id generator (nodeID must be distinct across concurrently
// running processes sharing the same adapter, exactly as snowflake.
// NewNode requires).
func NewStore(adapter PersistenceAdapter, nodeID int64) (*Store, error) {
	gen, err := newIDGenerator(nodeID)
	if err != nil {
		return nil, errors.Wrap(err, "crdtstorage: init id generator")
	}
	return &Store{adapter: adapter, ids: gen}, nil
}

// Create allocates a fresh document id and persists doc under it.
func (s *Store) Create(ctx context.Context, doc *document.Document) (string, error) {
	id := s.ids.next()
	if err := s.Save(ctx, id, doc, 1, nil); err != nil {
		return "", err
	}
	return id, nil
}

// Save persists doc under an existing id, stamping version and an
// optional metadata map alongside it.
func (s *Store) Save(ctx context.Context, id string, doc *document.Document, version int, metadata map[string]string) error {
	data, err := doc.Save()
	if err != nil {
		return errors.Wrap(err, "crdtstorage: encode document")
	}
	rec := &Record{
		ID:           id,
		Data:         data,
		LastModified: time.Now(),
		Version:      version,
		Metadata:     metadata,
	}
	if err := s.adapter.SaveRecord(ctx, rec); err != nil {
		return errors.Wrapf(err, "crdtstorage: save document %s", id)
	}
	return nil
}

// Load fetches and decodes the document stored under id, attributing
// locally-made future changes to actor.
func (s *Store) Load(ctx context.Context, id string, actor common.ActorID) (*document.Document, *Record, error) {
	rec, err := s.adapter.LoadRecord(ctx, id)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "crdtstorage: load document %s", id)
	}
	doc, err := document.Load(rec.Data, actor)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "crdtstorage: decode document %s", id)
	}
	return doc, rec, nil
}

// List returns every document id known to the backing adapter.
func (s *Store) List(ctx context.Context) ([]string, error) {
	ids, err := s.adapter.ListRecords(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "crdtstorage: list documents")
	}
	return ids, nil
}

// Delete removes a document from the backing adapter.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.adapter.DeleteRecord(ctx, id); err != nil {
		return errors.Wrapf(err, "crdtstorage: delete document %s", id)
	}
	return nil
}

// Close releases the adapter's resources.
func (s *Store) Close() error {
	return s.adapter.Close()
}
