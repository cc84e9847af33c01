// Package store is the file-backed library behind the playback core:
// JSON metadata for tracks, programs, paragraphs and playlists, plus
// resolution of media references to real files under the library root.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/alphapresenter/alphapresenter/playback"
)

// Subdirectories of the library root.
const (
	tracksDir     = "tracks"
	programsDir   = "programs"
	paragraphsDir = "paragraphs"
	playlistsDir  = "playlists"
	mediaDir      = "media"
)

// Store reads library metadata from a directory tree. All loads are
// synchronous and read-only; editing the library is someone else's job.
type Store struct {
	root string
	log  *log.Logger
}

// New opens the library at root.
func New(root string, logger *log.Logger) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("library root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library root %s is not a directory", root)
	}
	return &Store{
		root: root,
		log:  logger.With("component", "store"),
	}, nil
}

// Root returns the library root directory.
func (s *Store) Root() string {
	return s.root
}

// EnsureLayout creates the library subdirectories that don't exist yet.
func (s *Store) EnsureLayout() error {
	for _, dir := range []string{tracksDir, programsDir, paragraphsDir, playlistsDir, mediaDir} {
		if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// SafeName reports whether name is usable as a single path component:
// no separators, no null bytes, not "." or "..".
func SafeName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// loadJSON reads one metadata file into v.
func (s *Store) loadJSON(dir, name string, v any) error {
	if !SafeName(name) {
		return fmt.Errorf("unsafe name %q: %w", name, playback.ErrNotFound)
	}
	path := filepath.Join(s.root, dir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s/%s: %w", dir, name, playback.ErrNotFound)
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// LoadTrackMetadata implements playback.Library.
func (s *Store) LoadTrackMetadata(name string) (*playback.TrackMetadata, error) {
	var meta playback.TrackMetadata
	if err := s.loadJSON(tracksDir, name, &meta); err != nil {
		return nil, err
	}
	if meta.TrackName == "" {
		meta.TrackName = name
	}
	return &meta, nil
}

// LoadProgram implements playback.Library.
func (s *Store) LoadProgram(name string) (*playback.Program, error) {
	var program playback.Program
	if err := s.loadJSON(programsDir, name, &program); err != nil {
		return nil, err
	}
	if program.ProgramName == "" {
		program.ProgramName = name
	}
	return &program, nil
}

// LoadParagraph implements playback.Library.
func (s *Store) LoadParagraph(name string) (*playback.Paragraph, error) {
	var para playback.Paragraph
	if err := s.loadJSON(paragraphsDir, name, &para); err != nil {
		return nil, err
	}
	if para.Name == "" {
		para.Name = name
	}
	return &para, nil
}

// LoadPlaylist reads a playlist by name.
func (s *Store) LoadPlaylist(name string) (*playback.Playlist, error) {
	var playlist playback.Playlist
	if err := s.loadJSON(playlistsDir, name, &playlist); err != nil {
		return nil, err
	}
	s.log.Info("playlist loaded", "playlist", name, "slides", len(playlist.Slides))
	return &playlist, nil
}

// ListPlaylists returns the names of the stored playlists.
func (s *Store) ListPlaylists() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, playlistsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing playlists: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return names, nil
}

// MediaPath implements playback.Library. The relative reference must
// resolve inside the media directory and name an existing regular file.
func (s *Store) MediaPath(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("empty media reference: %w", playback.ErrNotFound)
	}
	base := filepath.Join(s.root, mediaDir)
	path := filepath.Join(base, filepath.FromSlash(rel))
	cleaned := filepath.Clean(path)
	if cleaned != base && !strings.HasPrefix(cleaned, base+string(filepath.Separator)) {
		return "", fmt.Errorf("media reference %q escapes the library: %w", rel, playback.ErrNotFound)
	}
	info, err := os.Stat(cleaned)
	if err != nil {
		return "", fmt.Errorf("media %q: %w", rel, playback.ErrNotFound)
	}
	if info.IsDir() {
		return "", fmt.Errorf("media %q is a directory: %w", rel, playback.ErrNotFound)
	}
	return cleaned, nil
}
