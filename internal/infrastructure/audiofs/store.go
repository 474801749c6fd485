package audiofs

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/ports"
)

// refPrefix is the logical prefix of every stored audio reference.
const refPrefix = "audio/"

// Store keeps audio artifacts under root/{articleID}/{articleID}_{order}.mp3.
type Store struct {
	root string
}

var _ ports.AudioStore = (*Store)(nil)

// New returns a store rooted at dir.
func New(dir string) *Store {
	return &Store{root: filepath.Clean(dir)}
}

// Root returns the directory holding all artifacts.
func (s *Store) Root() string {
	return s.root
}

// Ref derives the deterministic reference of a paragraph's audio.
func (s *Store) Ref(articleID int64, orderIndex int) string {
	aid := strconv.FormatInt(articleID, 10)
	return refPrefix + aid + "/" + aid + "_" + strconv.Itoa(orderIndex) + ".mp3"
}

// Exists reports whether the artifact behind ref is present and non-empty.
func (s *Store) Exists(ref string) bool {
	p, err := s.resolve(ref)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Read returns the artifact bytes; a missing file is domain.ErrNotFound.
func (s *Store) Read(ref string) ([]byte, error) {
	p, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrFilesystem, ref, err)
	}
	return data, nil
}

// Write stores audio atomically, creating the article directory if needed.
func (s *Store) Write(ref string, audio []byte) error {
	p, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("%w: create audio dir: %v", domain.ErrFilesystem, err)
	}
	if err := writeFileAtomic(p, audio, 0o644); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFilesystem, err)
	}
	return nil
}

// RemoveArticle deletes the whole audio subtree of an article. A missing
// directory is not an error.
func (s *Store) RemoveArticle(articleID int64) error {
	dir := filepath.Join(s.root, strconv.FormatInt(articleID, 10))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: remove %s: %v", domain.ErrFilesystem, dir, err)
	}
	return nil
}

// resolve maps a reference onto the filesystem, refusing anything that
// escapes the root.
func (s *Store) resolve(ref string) (string, error) {
	rel := strings.TrimPrefix(path.Clean("/"+ref), "/")
	rel = strings.TrimPrefix(rel, refPrefix)
	if path.Ext(rel) != ".mp3" || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: invalid audio reference %q", domain.ErrFilesystem, ref)
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

func writeFileAtomic(target string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), "audio-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
