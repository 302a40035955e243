package pdf

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func testRecentService(t *testing.T) *RecentFilesService {
	t.Helper()
	service := NewRecentFilesService()
	service.statePath = filepath.Join(t.TempDir(), "recents.tsv")
	return service
}

func recentEntry(path string, page int) RecentFile {
	return RecentFile{
		FilePath: path,
		Page:     page,
		Zoom:     1.5,
		Rotate:   0,
		ScrollX:  10,
		ScrollY:  240.5,
		LayoutW:  450,
		LayoutH:  600,
		LayoutEm: 12,
	}
}

// TestNewRecentFilesService tests service creation
func TestNewRecentFilesService(t *testing.T) {
	service := NewRecentFilesService()

	if service == nil {
		t.Fatal("NewRecentFilesService returned nil")
	}
	if service.maxRecent != DefaultMaxRecentFiles {
		t.Errorf("Expected maxRecent %d, got %d", DefaultMaxRecentFiles, service.maxRecent)
	}
	if len(service.files) != 0 {
		t.Error("Expected empty files list")
	}
	if service.statePath == "" {
		t.Error("statePath not set")
	}
	if filepath.Base(service.statePath) != "recents.tsv" {
		t.Errorf("state file should be recents.tsv, got %s", service.statePath)
	}
	if filepath.Base(filepath.Dir(service.statePath)) != "opendroidpdf" {
		t.Errorf("state dir should be opendroidpdf, got %s", service.statePath)
	}
}

// TestRecentFilesStartup tests service startup
func TestRecentFilesStartup(t *testing.T) {
	service := testRecentService(t)

	ctx := context.Background()
	service.Startup(ctx)

	if service.ctx == nil {
		t.Error("Context not set after Startup")
	}
	if service.ctx != ctx {
		t.Error("Context not correct")
	}
}

// TestRecentFilesStartup_LoadsExistingFiles tests that an existing TSV is loaded on startup
func TestRecentFilesStartup_LoadsExistingFiles(t *testing.T) {
	tmpDir := t.TempDir()
	statePath := filepath.Join(tmpDir, "recents.tsv")
	testFile := filepath.Join(tmpDir, "test.pdf")
	CreateTestPDF(t, testFile, 1)

	line := "1722470400000\t3\t1.25\t90\t0\t512.5\t450\t600\t12\t" + testFile + "\n"
	if err := os.WriteFile(statePath, []byte(line), 0600); err != nil {
		t.Fatal(err)
	}

	service := NewRecentFilesService()
	service.statePath = statePath
	service.Startup(context.Background())

	files := service.GetRecent()
	if len(files) != 1 {
		t.Fatalf("Expected 1 recent file, got %d", len(files))
	}
	f := files[0]
	if f.FilePath != testFile {
		t.Errorf("FilePath mismatch: %s", f.FilePath)
	}
	if f.Page != 3 || f.Zoom != 1.25 || f.Rotate != 90 {
		t.Errorf("view state mismatch: page=%d zoom=%v rotate=%d", f.Page, f.Zoom, f.Rotate)
	}
	if f.ScrollY != 512.5 || f.LayoutW != 450 || f.LayoutH != 600 || f.LayoutEm != 12 {
		t.Errorf("layout state mismatch: %+v", f)
	}
	if f.LastOpened.UnixMilli() != 1722470400000 {
		t.Errorf("LastOpened mismatch: %v", f.LastOpened)
	}
}

// TestAddRecent tests adding a recent file
func TestAddRecent(t *testing.T) {
	service := testRecentService(t)
	testFile := filepath.Join(t.TempDir(), "doc.pdf")
	CreateTestPDF(t, testFile, 1)

	if err := service.AddRecent(recentEntry(testFile, 2)); err != nil {
		t.Fatalf("AddRecent failed: %v", err)
	}

	files := service.GetRecent()
	if len(files) != 1 {
		t.Fatalf("Expected 1 file, got %d", len(files))
	}
	if files[0].FilePath != testFile {
		t.Errorf("FilePath mismatch: %s", files[0].FilePath)
	}
	if files[0].FileName != "doc.pdf" {
		t.Errorf("FileName should be derived from path, got %s", files[0].FileName)
	}
	if files[0].LastOpened.IsZero() {
		t.Error("LastOpened should be stamped when zero")
	}
}

// TestAddRecent_EmptyPath tests that an empty path is rejected
func TestAddRecent_EmptyPath(t *testing.T) {
	service := testRecentService(t)
	if err := service.AddRecent(RecentFile{}); err == nil {
		t.Error("Expected error for empty file path")
	}
}

// TestAddRecent_Duplicate tests that re-adding a file moves it to the front
func TestAddRecent_Duplicate(t *testing.T) {
	service := testRecentService(t)
	tmpDir := t.TempDir()

	first := filepath.Join(tmpDir, "first.pdf")
	second := filepath.Join(tmpDir, "second.pdf")
	CreateTestPDF(t, first, 1)
	CreateTestPDF(t, second, 1)

	service.AddRecent(recentEntry(first, 0))
	service.AddRecent(recentEntry(second, 0))
	service.AddRecent(recentEntry(first, 7))

	files := service.GetRecent()
	if len(files) != 2 {
		t.Fatalf("Expected 2 files after duplicate add, got %d", len(files))
	}
	if files[0].FilePath != first {
		t.Error("Re-added file should be first")
	}
	if files[0].Page != 7 {
		t.Errorf("Re-add should refresh view state, got page %d", files[0].Page)
	}
}

// TestAddRecent_MaxLimit tests the 10-entry cap
func TestAddRecent_MaxLimit(t *testing.T) {
	service := testRecentService(t)
	tmpDir := t.TempDir()

	for i := 0; i < DefaultMaxRecentFiles+5; i++ {
		path := filepath.Join(tmpDir, "file"+string(rune('a'+i))+".pdf")
		CreateTestPDF(t, path, 1)
		if err := service.AddRecent(recentEntry(path, i)); err != nil {
			t.Fatalf("AddRecent failed: %v", err)
		}
	}

	files := service.GetRecent()
	if len(files) != DefaultMaxRecentFiles {
		t.Errorf("Expected %d files, got %d", DefaultMaxRecentFiles, len(files))
	}
	// Newest entry survives, oldest fell off
	if files[0].Page != DefaultMaxRecentFiles+4 {
		t.Errorf("Newest entry should be first, got page %d", files[0].Page)
	}
}

// TestAddRecent_Persistence tests that entries are written as well-formed TSV
func TestAddRecent_Persistence(t *testing.T) {
	service := testRecentService(t)
	tmpDir := t.TempDir()

	// A path with spaces must survive verbatim in the last column.
	testFile := filepath.Join(tmpDir, "annual report 2026.pdf")
	CreateTestPDF(t, testFile, 1)

	if err := service.AddRecent(recentEntry(testFile, 4)); err != nil {
		t.Fatalf("AddRecent failed: %v", err)
	}

	data, err := os.ReadFile(service.statePath)
	if err != nil {
		t.Fatalf("Failed to read state file: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}
	cols := strings.SplitN(lines[0], "\t", 10)
	if len(cols) != 10 {
		t.Fatalf("Expected 10 TSV columns, got %d: %q", len(cols), lines[0])
	}
	if cols[9] != testFile {
		t.Errorf("Path column should be verbatim, got %q", cols[9])
	}
	if cols[1] != "4" {
		t.Errorf("Page column mismatch: %q", cols[1])
	}
}

// TestGetRecent_FilterNonExistent tests that deleted files are dropped
func TestGetRecent_FilterNonExistent(t *testing.T) {
	service := testRecentService(t)
	tmpDir := t.TempDir()

	keep := filepath.Join(tmpDir, "keep.pdf")
	gone := filepath.Join(tmpDir, "gone.pdf")
	CreateTestPDF(t, keep, 1)
	CreateTestPDF(t, gone, 1)

	service.AddRecent(recentEntry(gone, 0))
	service.AddRecent(recentEntry(keep, 0))

	os.Remove(gone)

	files := service.GetRecent()
	if len(files) != 1 {
		t.Fatalf("Expected 1 file after filter, got %d", len(files))
	}
	if files[0].FilePath != keep {
		t.Errorf("Wrong file survived: %s", files[0].FilePath)
	}
}

// TestGetRecent_OrderByMostRecent tests reload ordering: insertion-reverse
func TestGetRecent_OrderByMostRecent(t *testing.T) {
	service := testRecentService(t)
	tmpDir := t.TempDir()

	paths := []string{
		filepath.Join(tmpDir, "one.pdf"),
		filepath.Join(tmpDir, "two.pdf"),
		filepath.Join(tmpDir, "three.pdf"),
	}
	for _, p := range paths {
		CreateTestPDF(t, p, 1)
		if err := service.AddRecent(recentEntry(p, 0)); err != nil {
			t.Fatalf("AddRecent failed: %v", err)
		}
	}

	// Reload from disk into a fresh service: order must match insertion
	// reverse (most-recent-first).
	reloaded := NewRecentFilesService()
	reloaded.statePath = service.statePath
	reloaded.Startup(context.Background())

	files := reloaded.GetRecent()
	if len(files) != 3 {
		t.Fatalf("Expected 3 files after reload, got %d", len(files))
	}
	for i, want := range []string{paths[2], paths[1], paths[0]} {
		if files[i].FilePath != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, files[i].FilePath)
		}
	}
}

// TestClearRecent tests clearing the list
func TestClearRecent(t *testing.T) {
	service := testRecentService(t)
	testFile := filepath.Join(t.TempDir(), "doc.pdf")
	CreateTestPDF(t, testFile, 1)

	service.AddRecent(recentEntry(testFile, 0))

	if err := service.ClearRecent(); err != nil {
		t.Fatalf("ClearRecent failed: %v", err)
	}
	if len(service.GetRecent()) != 0 {
		t.Error("Expected empty list after clear")
	}

	data, _ := os.ReadFile(service.statePath)
	if len(data) != 0 {
		t.Errorf("State file should be empty after clear, got %q", data)
	}
}

// TestRemoveRecent tests removing a specific entry
func TestRemoveRecent(t *testing.T) {
	service := testRecentService(t)
	tmpDir := t.TempDir()

	first := filepath.Join(tmpDir, "first.pdf")
	second := filepath.Join(tmpDir, "second.pdf")
	CreateTestPDF(t, first, 1)
	CreateTestPDF(t, second, 1)

	service.AddRecent(recentEntry(first, 0))
	service.AddRecent(recentEntry(second, 0))

	if err := service.RemoveRecent(first); err != nil {
		t.Fatalf("RemoveRecent failed: %v", err)
	}

	files := service.GetRecent()
	if len(files) != 1 {
		t.Fatalf("Expected 1 file, got %d", len(files))
	}
	if files[0].FilePath != second {
		t.Errorf("Wrong file removed")
	}
}

// TestRemoveRecent_NonExistent tests removing an absent path is a no-op
func TestRemoveRecent_NonExistent(t *testing.T) {
	service := testRecentService(t)

	if err := service.RemoveRecent("/does/not/exist.pdf"); err != nil {
		t.Errorf("Expected nil for non-existent file, got %v", err)
	}
}

// TestLoad_FileNotExist tests loading when no state file exists yet
func TestLoad_FileNotExist(t *testing.T) {
	service := NewRecentFilesService()
	service.statePath = filepath.Join(t.TempDir(), "nonexistent.tsv")

	if err := service.load(); err != nil {
		t.Errorf("Expected nil for missing file, got %v", err)
	}
	if len(service.files) != 0 {
		t.Error("Expected empty list")
	}
}

// TestLoad_MalformedLines tests that bad rows are skipped, not fatal
func TestLoad_MalformedLines(t *testing.T) {
	tmpDir := t.TempDir()
	statePath := filepath.Join(tmpDir, "recents.tsv")
	testFile := filepath.Join(tmpDir, "ok.pdf")
	CreateTestPDF(t, testFile, 1)

	content := strings.Join([]string{
		"not a tsv line at all",
		"1722470400000\tbadpage\t1\t0\t0\t0\t450\t600\t12\t/x.pdf",
		"1722470400000\t0\t1\t0\t0\t0\t450\t600\t12\t" + testFile,
		"",
	}, "\n")
	os.WriteFile(statePath, []byte(content), 0600)

	service := NewRecentFilesService()
	service.statePath = statePath

	if err := service.load(); err != nil {
		t.Fatalf("load should not fail on malformed lines: %v", err)
	}
	if len(service.files) != 1 {
		t.Fatalf("Expected 1 valid entry, got %d", len(service.files))
	}
	if service.files[0].FilePath != testFile {
		t.Errorf("Wrong entry survived: %s", service.files[0].FilePath)
	}
}

// TestRecentLineRoundTrip tests encode/parse symmetry
func TestRecentLineRoundTrip(t *testing.T) {
	in := RecentFile{
		FilePath:   "/tmp/my documents/report final.pdf",
		LastOpened: time.UnixMilli(1722470400123),
		Page:       12,
		Zoom:       2.5,
		Rotate:     270,
		ScrollX:    -3.5,
		ScrollY:    1024,
		LayoutW:    450,
		LayoutH:    600,
		LayoutEm:   11,
	}

	out, err := parseRecentLine(formatRecentLine(in))
	if err != nil {
		t.Fatalf("parseRecentLine failed: %v", err)
	}

	if out.FilePath != in.FilePath {
		t.Errorf("FilePath: %q != %q", out.FilePath, in.FilePath)
	}
	if out.FileName != "report final.pdf" {
		t.Errorf("FileName: %q", out.FileName)
	}
	if !out.LastOpened.Equal(in.LastOpened) {
		t.Errorf("LastOpened: %v != %v", out.LastOpened, in.LastOpened)
	}
	if out.Page != in.Page || out.Zoom != in.Zoom || out.Rotate != in.Rotate {
		t.Errorf("view state mismatch: %+v", out)
	}
	if out.ScrollX != in.ScrollX || out.ScrollY != in.ScrollY {
		t.Errorf("scroll mismatch: %+v", out)
	}
	if out.LayoutW != in.LayoutW || out.LayoutH != in.LayoutH || out.LayoutEm != in.LayoutEm {
		t.Errorf("layout mismatch: %+v", out)
	}
}

// TestConcurrentAccess tests thread safety
func TestConcurrentAccess(t *testing.T) {
	service := testRecentService(t)
	tmpDir := t.TempDir()

	paths := make([]string, 5)
	for i := range paths {
		paths[i] = filepath.Join(tmpDir, "file"+string(rune('a'+i))+".pdf")
		CreateTestPDF(t, paths[i], 1)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			service.AddRecent(recentEntry(paths[i%len(paths)], i))
		}(i)
		go func() {
			defer wg.Done()
			service.GetRecent()
		}()
	}
	wg.Wait()

	if len(service.GetRecent()) > len(paths) {
		t.Error("More entries than distinct paths")
	}
}

// TestFilePermissions tests that the state file is user-only
func TestFilePermissions(t *testing.T) {
	service := testRecentService(t)
	testFile := filepath.Join(t.TempDir(), "doc.pdf")
	CreateTestPDF(t, testFile, 1)

	service.AddRecent(recentEntry(testFile, 0))

	info, err := os.Stat(service.statePath)
	if err != nil {
		t.Fatalf("Failed to stat state file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %o", info.Mode().Perm())
	}
}

// TestDefaultMaxRecentFiles pins the cap the recents format specifies
func TestDefaultMaxRecentFiles(t *testing.T) {
	if DefaultMaxRecentFiles != 10 {
		t.Errorf("Expected cap of 10, got %d", DefaultMaxRecentFiles)
	}
}
