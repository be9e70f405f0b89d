package share

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Entry is one directory entry in a listing, described relative to the
// shared root.
type Entry struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"` // root-relative, POSIX-style
	Size       int64     `json:"size"`
	Kind       string    `json:"kind"` // "file" or "folder"
	ModifiedAt time.Time `json:"modifiedAt"`
	Category   string    `json:"category"`
}

// FolderNode is one node of the directories-only navigation tree.
type FolderNode struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	Children []*FolderNode `json:"children"`
}

// categories maps file extensions (without the dot) to a coarse category
// used by the UI to pick icons and preview modes.
var categories = map[string]string{
	"pdf": "document", "doc": "document", "docx": "document", "xls": "document",
	"xlsx": "document", "ppt": "document", "pptx": "document", "txt": "document", "md": "document",
	"jpg": "image", "jpeg": "image", "png": "image", "gif": "image",
	"bmp": "image", "webp": "image", "svg": "image",
	"mp3": "audio", "wav": "audio", "ogg": "audio", "flac": "audio", "aac": "audio",
	"mp4": "video", "webm": "video", "mov": "video", "avi": "video", "mkv": "video",
	"exe": "program", "msi": "program", "dmg": "program", "sh": "program", "bat": "program",
}

// Category derives the coarse file category from a filename extension.
func Category(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if c, ok := categories[ext]; ok {
		return c
	}
	return "other"
}

// ListDirectory returns the entries one level under rel. A missing shared
// root is provisioned on the fly and yields an empty listing; any other
// missing path is ErrNotFound.
func (s *Store) ListDirectory(rel string) ([]Entry, error) {
	abs, err := s.Resolve(rel)
	if err != nil {
		return nil, err
	}

	dirents, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			if abs == s.root {
				if mkErr := os.MkdirAll(s.root, 0755); mkErr != nil {
					return nil, fmt.Errorf("provision shared root: %w", mkErr)
				}
				return []Entry{}, nil
			}
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read directory: %w", err)
	}

	relSlash := path.Clean("/" + filepath.ToSlash(rel))[1:]
	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		info, err := de.Info()
		if err != nil {
			log.Printf("[share] stat %s: %v", de.Name(), err)
			continue
		}
		e := Entry{
			Name:       de.Name(),
			Path:       path.Join(relSlash, de.Name()),
			Size:       info.Size(),
			Kind:       "file",
			ModifiedAt: info.ModTime(),
			Category:   Category(de.Name()),
		}
		if de.IsDir() {
			e.Kind = "folder"
			e.Size = 0
			e.Category = "other"
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// FolderTree builds the full directories-only tree under the shared root.
func (s *Store) FolderTree() (*FolderNode, error) {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return nil, fmt.Errorf("provision shared root: %w", err)
	}
	return s.readFolder(s.root, "")
}

func (s *Store) readFolder(abs, rel string) (*FolderNode, error) {
	node := &FolderNode{
		Name:     filepath.Base(abs),
		Path:     rel,
		Children: []*FolderNode{},
	}
	dirents, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read folder %q: %w", rel, err)
	}
	for _, de := range dirents {
		if !de.IsDir() {
			continue
		}
		child, err := s.readFolder(filepath.Join(abs, de.Name()), path.Join(rel, de.Name()))
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// SubtreeSize returns the recursive sum of file sizes under rel, plus the
// number of entries that could not be read and were skipped. A missing
// target contributes zero. Partial accounting is deliberate: one unreadable
// entry must not fail the whole computation.
func (s *Store) SubtreeSize(rel string) (int64, int, error) {
	abs, err := s.Resolve(rel)
	if err != nil {
		return 0, 0, err
	}
	size, skipped := subtreeSize(abs)
	return size, skipped, nil
}

func subtreeSize(abs string) (int64, int) {
	dirents, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0
		}
		log.Printf("[share] size scan: read %s: %v", abs, err)
		return 0, 1
	}

	var total int64
	var skipped int
	for _, de := range dirents {
		child := filepath.Join(abs, de.Name())
		if de.IsDir() {
			sz, sk := subtreeSize(child)
			total += sz
			skipped += sk
			continue
		}
		info, err := de.Info()
		if err != nil {
			log.Printf("[share] size scan: stat %s: %v", child, err)
			skipped++
			continue
		}
		total += info.Size()
	}
	return total, skipped
}
