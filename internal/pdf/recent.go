package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMaxRecentFiles caps the recents list; older entries fall off.
	DefaultMaxRecentFiles = 10

	recentStateSubdir = "opendroidpdf"
	recentStateFile   = "recents.tsv"
)

// RecentFile is one remembered document together with the viewer state to
// restore when it is reopened.
type RecentFile struct {
	FilePath   string    `json:"filePath"`
	FileName   string    `json:"fileName"`
	LastOpened time.Time `json:"lastOpened"`
	Page       int       `json:"page"`
	Zoom       float64   `json:"zoom"`
	Rotate     int       `json:"rotate"`
	ScrollX    float64   `json:"scrollX"`
	ScrollY    float64   `json:"scrollY"`
	LayoutW    float64   `json:"layoutW"`
	LayoutH    float64   `json:"layoutH"`
	LayoutEm   float64   `json:"layoutEm"`
}

// RecentFilesService manages recently opened files. Entries persist as a
// tab-separated file under $XDG_STATE_HOME (viewer state is state, not
// configuration), most-recent-first, with the path stored verbatim as the
// last column so paths containing spaces survive the round trip.
type RecentFilesService struct {
	mu        sync.RWMutex
	ctx       context.Context
	statePath string
	files     []RecentFile
	maxRecent int
}

// NewRecentFilesService creates a new recent files service
func NewRecentFilesService() *RecentFilesService {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "."
		}
		stateDir = filepath.Join(homeDir, ".local", "state")
	}
	stateDir = filepath.Join(stateDir, recentStateSubdir)
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		slog.Warn("failed to create state directory", "error", err, "path", stateDir)
	}

	return &RecentFilesService{
		statePath: filepath.Join(stateDir, recentStateFile),
		files:     []RecentFile{},
		maxRecent: DefaultMaxRecentFiles,
	}
}

// Startup is called when the app starts
func (s *RecentFilesService) Startup(ctx context.Context) {
	s.ctx = ctx
	if err := s.load(); err != nil {
		slog.Warn("failed to load recent files", "error", err)
	}
}

// AddRecent records a file (with its current viewer state) at the head of
// the list, dropping any older entry for the same path.
func (s *RecentFilesService) AddRecent(entry RecentFile) error {
	if entry.FilePath == "" {
		return fmt.Errorf("recent files: empty file path")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.files {
		if f.FilePath == entry.FilePath {
			s.files = append(s.files[:i], s.files[i+1:]...)
			break
		}
	}

	entry.FileName = filepath.Base(entry.FilePath)
	if entry.LastOpened.IsZero() {
		entry.LastOpened = time.Now()
	}

	s.files = append([]RecentFile{entry}, s.files...)

	if len(s.files) > s.maxRecent {
		s.files = s.files[:s.maxRecent]
	}

	return s.save()
}

// GetRecent returns the list of recent files, filtering out files that no longer exist
func (s *RecentFilesService) GetRecent() []RecentFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	validFiles := []RecentFile{}
	filesChanged := false

	for _, f := range s.files {
		if _, err := os.Stat(f.FilePath); err == nil {
			validFiles = append(validFiles, f)
		} else {
			filesChanged = true
		}
	}

	if filesChanged {
		s.files = validFiles
		go s.saveAsync()
	}

	result := make([]RecentFile, len(s.files))
	copy(result, s.files)
	return result
}

// ClearRecent clears all recent files
func (s *RecentFilesService) ClearRecent() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files = []RecentFile{}
	return s.save()
}

// RemoveRecent removes a specific file from recent files list
func (s *RecentFilesService) RemoveRecent(filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.files {
		if f.FilePath == filePath {
			s.files = append(s.files[:i], s.files[i+1:]...)
			return s.save()
		}
	}
	return nil // File not found, no error
}

// load reads the recents TSV from disk. Malformed lines are skipped rather
// than failing the whole file, so a truncated write loses at most one entry.
func (s *RecentFilesService) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No recent files yet
		}
		return fmt.Errorf("failed to read recent files: %w", err)
	}

	files := []RecentFile{}
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		entry, err := parseRecentLine(line)
		if err != nil {
			slog.Info("skipping malformed recents line", "error", err)
			continue
		}
		files = append(files, entry)
		if len(files) == s.maxRecent {
			break
		}
	}
	s.files = files

	return nil
}

// parseRecentLine decodes one TSV row:
// epoch_ms, page, zoom, rotate, scroll_x, scroll_y, layout_w, layout_h, layout_em, path.
// The path is the final column and is taken verbatim (it may contain spaces,
// but never a tab or newline).
func parseRecentLine(line string) (RecentFile, error) {
	const columns = 10

	parts := strings.SplitN(line, "\t", columns)
	if len(parts) != columns {
		return RecentFile{}, fmt.Errorf("expected %d columns, got %d", columns, len(parts))
	}

	epochMS, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return RecentFile{}, fmt.Errorf("bad epoch_ms %q: %w", parts[0], err)
	}
	page, err := strconv.Atoi(parts[1])
	if err != nil {
		return RecentFile{}, fmt.Errorf("bad page %q: %w", parts[1], err)
	}
	zoom, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return RecentFile{}, fmt.Errorf("bad zoom %q: %w", parts[2], err)
	}
	rotate, err := strconv.Atoi(parts[3])
	if err != nil {
		return RecentFile{}, fmt.Errorf("bad rotate %q: %w", parts[3], err)
	}
	floats := make([]float64, 5)
	for i, name := range []string{"scroll_x", "scroll_y", "layout_w", "layout_h", "layout_em"} {
		floats[i], err = strconv.ParseFloat(parts[4+i], 64)
		if err != nil {
			return RecentFile{}, fmt.Errorf("bad %s %q: %w", name, parts[4+i], err)
		}
	}
	path := parts[9]
	if path == "" {
		return RecentFile{}, fmt.Errorf("empty path")
	}

	return RecentFile{
		FilePath:   path,
		FileName:   filepath.Base(path),
		LastOpened: time.UnixMilli(epochMS),
		Page:       page,
		Zoom:       zoom,
		Rotate:     rotate,
		ScrollX:    floats[0],
		ScrollY:    floats[1],
		LayoutW:    floats[2],
		LayoutH:    floats[3],
		LayoutEm:   floats[4],
	}, nil
}

func formatRecentLine(f RecentFile) string {
	return fmt.Sprintf("%d\t%d\t%g\t%d\t%g\t%g\t%g\t%g\t%g\t%s",
		f.LastOpened.UnixMilli(), f.Page, f.Zoom, f.Rotate,
		f.ScrollX, f.ScrollY, f.LayoutW, f.LayoutH, f.LayoutEm, f.FilePath)
}

func (s *RecentFilesService) encode() []byte {
	var b strings.Builder
	for _, f := range s.files {
		b.WriteString(formatRecentLine(f))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// save writes the recent files to disk
func (s *RecentFilesService) save() error {
	return os.WriteFile(s.statePath, s.encode(), 0600)
}

// saveAsync saves the recent files in the background without holding locks
// This is called from a goroutine and handles its own error logging
func (s *RecentFilesService) saveAsync() {
	s.mu.RLock()
	data := s.encode()
	s.mu.RUnlock()

	if err := os.WriteFile(s.statePath, data, 0600); err != nil {
		slog.Error("failed to save recent files", "error", err)
	}
}
