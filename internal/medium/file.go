package medium

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// fileImage is the on-disk shape of a File medium: the full key set and
// the insertion order, so enumeration survives restarts.
type fileImage struct {
	Keys  map[string]string `json:"keys"`
	Order []string          `json:"order"`
}

// File is a Medium backed by a single JSON file. Every mutation rewrites
// the file via a temp file and rename, so a crash never leaves a torn
// image. A zero quota means unlimited.
type File struct {
	mu    sync.RWMutex
	path  string
	data  map[string]string
	order []string
	quota int
}

// OpenFile opens (or creates) the medium at path. quotaBytes caps the
// sum of key+value byte lengths; zero disables the cap.
func OpenFile(path string, quotaBytes int) (*File, error) {
	f := &File{
		path:  path,
		data:  make(map[string]string),
		quota: quotaBytes,
	}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Fresh medium; the file appears on the first write.
	case err != nil:
		return nil, fmt.Errorf("medium: open %q: %w", path, err)
	default:
		var img fileImage
		if err := json.Unmarshal(raw, &img); err != nil {
			return nil, fmt.Errorf("medium: parse %q: %w", path, err)
		}
		if img.Keys != nil {
			f.data = img.Keys
		}
		f.order = rebuildOrder(f.data, img.Order)
	}
	return f, nil
}

// rebuildOrder keeps the persisted order for keys that still exist and
// appends any keys the order list missed (hand-edited files).
func rebuildOrder(data map[string]string, persisted []string) []string {
	seen := make(map[string]bool, len(data))
	order := make([]string, 0, len(data))
	for _, k := range persisted {
		if _, ok := data[k]; ok && !seen[k] {
			order = append(order, k)
			seen[k] = true
		}
	}
	for k := range data {
		if !seen[k] {
			order = append(order, k)
		}
	}
	return order
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

// SetQuota replaces the byte quota. Existing data is never evicted; the
// new quota applies to subsequent writes.
func (f *File) SetQuota(quotaBytes int) {
	f.mu.Lock()
	f.quota = quotaBytes
	f.mu.Unlock()
}

func (f *File) Get(key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.data[key]
	return v, ok
}

func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delta := len(key) + len(value)
	if old, ok := f.data[key]; ok {
		delta -= len(key) + len(old)
	}
	if f.quota > 0 && f.usedLocked()+delta > f.quota {
		return ErrQuotaExceeded
	}

	prev, existed := f.data[key]
	f.data[key] = value
	if !existed {
		f.order = append(f.order, key)
	}

	if err := f.persistLocked(); err != nil {
		// Roll back so memory matches disk.
		if existed {
			f.data[key] = prev
		} else {
			delete(f.data, key)
			f.order = f.order[:len(f.order)-1]
		}
		return fmt.Errorf("medium: persist %q: %w", f.path, err)
	}
	return nil
}

func (f *File) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	for i, k := range f.order {
		if k == key {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}

	if err := f.persistLocked(); err != nil {
		return fmt.Errorf("medium: persist %q: %w", f.path, err)
	}
	return nil
}

func (f *File) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.order)
}

func (f *File) Key(i int) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if i < 0 || i >= len(f.order) {
		return ""
	}
	return f.order[i]
}

// usedLocked sums key+value byte lengths. Caller holds mu.
func (f *File) usedLocked() int {
	used := 0
	for k, v := range f.data {
		used += len(k) + len(v)
	}
	return used
}

// persistLocked rewrites the backing file atomically. Caller holds mu.
func (f *File) persistLocked() error {
	img := fileImage{Keys: f.data, Order: f.order}
	raw, err := json.Marshal(img)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".taskvault-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
