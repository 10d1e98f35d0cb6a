package source

import (
	"fmt"
	"path/filepath"
	"sync"

	"fortio.org/safecast"
)

// FileSet maps input paths to stable FileIDs. FileID 0 is reserved for
// synthesized nodes.
type FileSet struct {
	mu    sync.RWMutex
	files []File
	index map[string]FileID
}

// NewFileSet creates an empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		files: []File{{ID: NoFileID, Path: "<builtin>"}},
		index: make(map[string]FileID),
	}
}

// Add registers path (cleaned) and returns its id. Adding the same path
// twice returns the first id.
func (fs *FileSet) Add(path string, size int64) FileID {
	clean := filepath.Clean(path)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if id, ok := fs.index[clean]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("file id overflow: %w", err))
	}
	id := FileID(n)
	fs.files = append(fs.files, File{ID: id, Path: clean, Size: size})
	fs.index[clean] = id
	return id
}

// Get returns the file registered under id.
func (fs *FileSet) Get(id FileID) (File, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if int(id) >= len(fs.files) {
		return File{}, false
	}
	return fs.files[id], true
}

// Path returns the path for id or "<builtin>" for synthesized spans.
func (fs *FileSet) Path(id FileID) string {
	if fs == nil {
		return "<builtin>"
	}
	f, ok := fs.Get(id)
	if !ok {
		return fmt.Sprintf("<file %d>", id)
	}
	return f.Path
}
