// Package storage keeps the photos of the current burst.
package storage

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/cjeanneret/photobooth/internal/debug"
)

// ErrEmptyStorage is returned by Last and DeleteLast when no photo is stored.
var ErrEmptyStorage = errors.New("photo storage is empty")

const jpegQuality = 92

// Photo is one captured frame.
type Photo struct {
	ID      uuid.UUID
	Image   image.Image
	Path    string // empty when not archived
	TakenAt time.Time
}

// PhotoStorage is an ordered list of photos. When dir is set every photo is
// also archived as dir/<burst>/<id>.jpg.
type PhotoStorage struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	dir    string
	burst  string
	photos []Photo
}

// New creates a storage. dir may be empty for memory-only storage.
func New(dir string, clock clockwork.Clock) *PhotoStorage {
	return &PhotoStorage{clock: clock, dir: dir}
}

// AddPhoto appends img and returns the stored photo.
func (s *PhotoStorage) AddPhoto(img image.Image) (Photo, error) {
	if img == nil {
		return Photo{}, fmt.Errorf("add photo: nil image")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Photo{
		ID:      uuid.New(),
		Image:   img,
		TakenAt: s.clock.Now(),
	}
	if s.dir != "" {
		path, err := s.archive(p)
		if err != nil {
			return Photo{}, err
		}
		p.Path = path
	}
	s.photos = append(s.photos, p)
	debug.Shot(len(s.photos), p.ID.String())
	return p, nil
}

func (s *PhotoStorage) archive(p Photo) (string, error) {
	if s.burst == "" {
		s.burst = uuid.NewString()
	}
	dir := filepath.Join(s.dir, s.burst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create burst dir: %w", err)
	}
	path := filepath.Join(dir, p.ID.String()+".jpg")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create photo file: %w", err)
	}
	if err := jpeg.Encode(f, p.Image, &jpeg.Options{Quality: jpegQuality}); err != nil {
		f.Close()
		return "", fmt.Errorf("encode photo: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close photo file: %w", err)
	}
	debug.Verbose("Storage: archived %s", path)
	return path, nil
}

// Photos returns a copy of the stored photos, oldest first.
func (s *PhotoStorage) Photos() []Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Photo(nil), s.photos...)
}

// Len returns the number of stored photos.
func (s *PhotoStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.photos)
}

// Last returns the most recent photo.
func (s *PhotoStorage) Last() (Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.photos) == 0 {
		return Photo{}, ErrEmptyStorage
	}
	return s.photos[len(s.photos)-1], nil
}

// DeleteLast removes the most recent photo, including its archived file.
func (s *PhotoStorage) DeleteLast() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.photos) == 0 {
		return ErrEmptyStorage
	}
	last := s.photos[len(s.photos)-1]
	s.photos = s.photos[:len(s.photos)-1]
	if last.Path != "" {
		if err := os.Remove(last.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", last.Path, err)
		}
	}
	debug.Verbose("Storage: deleted photo %s", last.ID)
	return nil
}

// Clear forgets every photo and starts a new burst. Archived files are kept.
func (s *PhotoStorage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photos = nil
	s.burst = ""
}
