package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"shiftrota/internal/platform/docstore"
)

var fileNames = map[string]string{
	docstore.CollectionRota:   "rota_data.json",
	docstore.CollectionConfig: "department_config.json",
	docstore.CollectionTokens: "password_reset_tokens.json",
}

// Store keeps one JSON file per collection. Every write rewrites the whole
// file through a temp file and rename so a crash never leaves a partial file.
type Store struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Path(collection string) string {
	name, ok := fileNames[collection]
	if !ok {
		name = collection + ".json"
	}
	return filepath.Join(s.dir, name)
}

func (s *Store) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := s.load(collection)
	if err != nil {
		return nil, err
	}
	doc, ok := docs[key]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return doc, nil
}

func (s *Store) List(ctx context.Context, collection string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := s.load(collection)
	if errors.Is(err, docstore.ErrNotFound) {
		return map[string][]byte{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(docs))
	for k, v := range docs {
		out[k] = v
	}
	return out, nil
}

func (s *Store) Put(ctx context.Context, collection, key string, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !json.Valid(doc) {
		return fmt.Errorf("put %s/%s: document is not valid json", collection, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.loadOrEmpty(collection)
	docs[key] = json.RawMessage(doc)
	return s.write(collection, docs)
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.loadOrEmpty(collection)
	if _, ok := docs[key]; !ok {
		return nil
	}
	delete(docs, key)
	return s.write(collection, docs)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) load(collection string) (map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(s.Path(collection))
	if errors.Is(err, os.ErrNotExist) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	docs := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", docstore.ErrCorrupt, collection, err)
	}
	return docs, nil
}

// loadOrEmpty mirrors the read path: an unreadable file counts as empty and
// is replaced by the next write.
func (s *Store) loadOrEmpty(collection string) map[string]json.RawMessage {
	docs, err := s.load(collection)
	if err != nil {
		return map[string]json.RawMessage{}
	}
	return docs
}

func (s *Store) write(collection string, docs map[string]json.RawMessage) error {
	payload, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}

	target := s.Path(collection)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", collection, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", collection, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", collection, err)
	}
	return nil
}
