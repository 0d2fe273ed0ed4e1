// Package cache holds generated image bytes in memory under short
// random ids so they can be served from a stable URL. Entries expire
// after a TTL; an optional archiver copies them to GCS for keeping.
package cache

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("image not found")

// Image is one cached generated image.
type Image struct {
	Data      []byte
	MediaType string
}

// Archiver receives a copy of every stored image. Implementations
// must tolerate being called concurrently.
type Archiver interface {
	Archive(id string, img Image)
}

type entry struct {
	img       Image
	expiresAt time.Time
}

type StoreConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// Store is the in-memory image store. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	entries  map[string]entry
	cfg      StoreConfig
	archiver Archiver
	newID    func() string
	stop     chan struct{}
	stopOnce sync.Once
}

func NewStore(cfg StoreConfig, archiver Archiver) *Store {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 10 * time.Minute
	}
	s := &Store{
		entries:  make(map[string]entry),
		cfg:      cfg,
		archiver: archiver,
		newID:    func() string { return uuid.NewString() },
		stop:     make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Put stores the image and returns its id.
func (s *Store) Put(img Image) string {
	id := s.newID()
	if img.MediaType == "" {
		img.MediaType = "image/png"
	}

	s.mu.Lock()
	s.entries[id] = entry{img: img, expiresAt: time.Now().Add(s.cfg.TTL)}
	s.mu.Unlock()

	if s.archiver != nil {
		go s.archiver.Archive(id, img)
	}
	slog.Debug("cached generated image", "id", id, "bytes", len(img.Data), "media_type", img.MediaType)
	return id
}

// PutDataURL parses a data URL ("data:image/png;base64,...") and
// stores the decoded bytes.
func (s *Store) PutDataURL(dataURL string) (string, error) {
	img, err := parseDataURL(dataURL)
	if err != nil {
		return "", err
	}
	return s.Put(img), nil
}

// Get returns the image for id or ErrNotFound. Expired entries count
// as absent even before the sweeper removes them.
func (s *Store) Get(id string) (Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || time.Now().After(e.expiresAt) {
		delete(s.entries, id)
		return Image{}, ErrNotFound
	}
	return e.img, nil
}

// Len reports the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the background sweeper.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) sweep() {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *Store) evictExpired() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}

func parseDataURL(dataURL string) (Image, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return Image{}, fmt.Errorf("not a data url")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, fmt.Errorf("malformed data url")
	}
	mediaType, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return Image{}, fmt.Errorf("unsupported data url encoding %q", encoding)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("decode data url payload: %w", err)
	}
	if mediaType == "" {
		mediaType = "image/png"
	}
	return Image{Data: data, MediaType: mediaType}, nil
}
