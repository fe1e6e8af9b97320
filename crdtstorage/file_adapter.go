package crdtstorage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// FileAdapter persists each document as one file under a base
// directory, plus a sidecar "<id>.meta.json" file for the Record's
// bookkeeping fields (LastModified/Version/Metadata). Grounded on the
// teacher's luvjson/crdtstorage/file_adapter.go (FileAdapter), keeping
// its one-file-per-document layout and directory listing approach.
type FileAdapter struct {
	basePath string
	mu       sync.RWMutex
}

type fileMeta struct {
	LastModified int64             `json:"last_modified_unix_nano"`
	Version      int               `json:"version"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// NewFileAdapter returns an adapter that stores documents under
// basePath, creating the directory if it does not already exist.
func NewFileAdapter(basePath string) (*FileAdapter, error) {
	if basePath == "" {
		basePath = "documents"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, errors.Wrap(err, "crdtstorage: create document directory")
	}
	return &FileAdapter{basePath: basePath}, nil
}

func (a *FileAdapter) dataPath(id string) string {
	return filepath.Join(a.basePath, id+".crdt")
}

func (a *FileAdapter) metaPath(id string) string {
	return filepath.Join(a.basePath, id+".meta.json")
}

func (a *FileAdapter) SaveRecord(ctx context.Context, rec *Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.WriteFile(a.dataPath(rec.ID), rec.Data, 0o644); err != nil {
		return errors.Wrap(err, "crdtstorage: write document file")
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
	if err := os.WriteFile(a.metaPath(rec.ID), metaBytes, 0o644); err != nil {
		return errors.Wrap(err, "crdtstorage: write document metadata file")
	}
	return nil
}

func (a *FileAdapter) LoadRecord(ctx context.Context, id string) (*Record, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	data, err := os.ReadFile(a.dataPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "crdtstorage: read document file")
	}

	rec := &Record{ID: id, Data: data}
	if metaBytes, err := os.ReadFile(a.metaPath(id)); err == nil {
		var meta fileMeta
		if err := json.Unmarshal(metaBytes, &meta); err == nil {
			rec.Version = meta.Version
			rec.Metadata = meta.Metadata
			rec.LastModified = timeFromUnixNano(meta.LastModified)
		}
	}
	return rec, nil
}

func (a *FileAdapter) ListRecords(ctx context.Context) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entries, err := os.ReadDir(a.basePath)
	if err != nil {
		return nil, errors.Wrap(err, "crdtstorage: read document directory")
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".crdt") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".crdt"))
	}
	return ids, nil
}

func (a *FileAdapter) DeleteRecord(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.Remove(a.dataPath(id)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "crdtstorage: remove document file")
	}
	_ = os.Remove(a.metaPath(id))
	return nil
}

func (a *FileAdapter) Close() error {
	return nil
}
