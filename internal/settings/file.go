package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// FileStore keeps all provider settings in one JSON document:
// {"gemini": {"api_key": "...", ...}, "whisper": {...}}.
// Writes are atomic (temp file + rename). An optional watch reports
// external edits so providers can reload without a restart.
type FileStore struct {
	path string
	log  zerolog.Logger

	mu sync.Mutex
	// lastWrite suppresses watch callbacks for the store's own saves.
	lastWrite time.Time
}

// NewFileStore creates a store backed by the JSON file at path. The file
// does not have to exist yet.
func NewFileStore(path string, log zerolog.Logger) *FileStore {
	return &FileStore{path: path, log: log}
}

// Load returns the persisted mapping for the provider, or an empty map
// if the file or the provider entry is missing.
func (s *FileStore) Load(_ context.Context, provider string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	values, ok := doc[provider]
	if !ok {
		return map[string]string{}, nil
	}
	return values, nil
}

// Save replaces the provider's entry and rewrites the file atomically.
func (s *FileStore) Save(_ context.Context, provider string, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc[provider] = values

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return err
	}
	s.lastWrite = time.Now()
	return nil
}

// Ping checks that the settings directory is accessible. A missing file
// is fine; it will be created on first save.
func (s *FileStore) Ping(context.Context) error {
	dir := filepath.Dir(s.path)
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	return nil
}

func (s *FileStore) Close() {}

// Watch invokes onChange whenever the settings file is modified by
// someone other than this store. Blocks until ctx is canceled.
func (s *FileStore) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors and the store's own
	// atomic rename replace the inode.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}

	s.log.Info().Str("path", s.path).Msg("watching settings file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if s.ownWrite() {
				continue
			}
			s.log.Info().Str("path", s.path).Msg("settings file changed externally")
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn().Err(err).Msg("settings watch error")
		}
	}
}

// ownWrite reports whether a save from this store happened recently
// enough that the current fs event is its echo.
func (s *FileStore) ownWrite() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastWrite) < 500*time.Millisecond
}

// read loads the whole document. Missing file yields an empty document.
func (s *FileStore) read() (map[string]map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	doc := map[string]map[string]string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", s.path, err)
		}
	}
	return doc, nil
}
