package imagecache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vk/assetpipe/internal/fsutil"
	"github.com/vk/assetpipe/internal/task"
	"github.com/vmihailenco/msgpack/v5"
)

// FileStore implements Store on the filesystem.
//
// Structure:
//
//	{Dir}/
//	  {key[0:2]}/
//	    {key}.msgpack
type FileStore struct {
	Dir string
}

// NewFileStore creates a FileStore rooted at dir. The directory is created
// lazily on the first Put.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// DefaultDir returns the cache location used when none is configured.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "assetpipe", "images"), nil
}

func (s *FileStore) entryPath(key Key) string {
	k := string(key)
	if len(k) < 2 {
		return filepath.Join(s.Dir, "_", k+".msgpack")
	}
	return filepath.Join(s.Dir, k[:2], k+".msgpack")
}

// Get reads the entry for key. Undecodable or mismatched entries are
// returned as a *task.CacheError.
func (s *FileStore) Get(key Key) (*Entry, error) {
	data, err := os.ReadFile(s.entryPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &task.CacheError{Key: string(key), Err: err}
	}

	var entry Entry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return nil, &task.CacheError{Key: string(key), Err: fmt.Errorf("decode: %w", err)}
	}
	if entry.Key != key {
		return nil, &task.CacheError{Key: string(key), Err: fmt.Errorf("entry holds key %s", entry.Key)}
	}
	return &entry, nil
}

// Put stores entry, replacing any previous entry with the same key.
func (s *FileStore) Put(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry is nil")
	}
	data, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return fsutil.WriteFileAtomic(s.entryPath(entry.Key), data)
}

// Clear removes the whole cache directory.
func (s *FileStore) Clear() error {
	if s.Dir == "" || s.Dir == "/" {
		return fmt.Errorf("refusing to clear cache at %q", s.Dir)
	}
	return os.RemoveAll(s.Dir)
}
