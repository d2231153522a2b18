package webstorage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// fileImage is the on-disk form of an area.
type fileImage struct {
	Writer string            `json:"writer"`
	Seq    uint64            `json:"seq"`
	Items  map[string]string `json:"items"`
}

// fileStore persists an area. All methods are called with the area lock
// held.
type fileStore struct {
	path     string
	lockPath string
	instance string
	seq      uint64

	lastWriter string
	lastSeq    uint64
}

func openFileStore(dir, name, instance string) (*fileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("webstorage: create dir: %w", err)
	}
	path := filepath.Join(dir, FileName(name))
	return &fileStore{
		path:     path,
		lockPath: strings.TrimSuffix(path, ".json") + ".lock",
		instance: instance,
	}, nil
}

// FileName returns the persistence file name for an area name.
func FileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String() + ".local.json"
}

// lock takes the write lock shared by every Area on this file. Writers
// hold it from the read that refreshes their copy until the rename, so a
// rewrite never drops another writer's keys. The returned function
// releases it.
func (f *fileStore) lock() (func(), error) {
	lf, err := os.OpenFile(f.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("webstorage: open lock %s: %w", f.lockPath, err)
	}
	if err := lockFile(lf); err != nil {
		lf.Close()
		return nil, fmt.Errorf("webstorage: lock %s: %w", f.lockPath, err)
	}
	return func() {
		unlockFile(lf)
		lf.Close()
	}, nil
}

// read returns the current file image, or nil if the file does not exist.
func (f *fileStore) read() (*fileImage, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("webstorage: read %s: %w", f.path, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var img fileImage
	if err := json.Unmarshal(raw, &img); err != nil {
		return nil, fmt.Errorf("webstorage: decode %s: %w", f.path, err)
	}
	if img.Items == nil {
		img.Items = make(map[string]string)
	}
	return &img, nil
}

// write replaces the file atomically with items.
func (f *fileStore) write(items map[string]string) error {
	img := fileImage{Writer: f.instance, Seq: f.seq + 1, Items: items}
	raw, err := json.Marshal(img)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".webstore-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}

	f.seq = img.Seq
	f.markSeen(&img)
	return nil
}

// isNew reports whether img differs from the last image loaded or written.
func (f *fileStore) isNew(img *fileImage) bool {
	return img.Writer != f.lastWriter || img.Seq != f.lastSeq
}

func (f *fileStore) markSeen(img *fileImage) {
	f.lastWriter = img.Writer
	f.lastSeq = img.Seq
}
