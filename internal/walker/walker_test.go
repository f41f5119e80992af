package walker

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
)

// testdataDir returns the absolute path to the testdata/sample_corpus directory.
func testdataDir(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("unable to determine test file location")
	}
	root := filepath.Join(filepath.Dir(filename), "..", "..", "testdata", "sample_corpus")
	abs, err := filepath.Abs(root)
	if err != nil {
		t.Fatalf("resolve testdata path: %v", err)
	}
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		t.Fatalf("testdata dir does not exist: %s", abs)
	}
	return abs
}

func relPaths(files []FileInfo) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.RelPath)
	}
	sort.Strings(out)
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWalk_SampleCorpus(t *testing.T) {
	files, err := Walk(WalkerConfig{RootDir: testdataDir(t)})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	got := relPaths(files)
	want := []string{".gitignore", "annual_report.txt", "notes/meeting.md", "scans/invoice.pdf"}
	if len(got) != len(want) {
		t.Fatalf("Walk() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("file %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWalk_FileInfoFields(t *testing.T) {
	files, err := Walk(WalkerConfig{RootDir: testdataDir(t), Include: []string{"**/*.txt", "**/*.md", "**/*.pdf"}})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 documents, got %v", relPaths(files))
	}

	kinds := map[string]Kind{}
	for _, f := range files {
		if f.Path == "" || !filepath.IsAbs(f.Path) {
			t.Errorf("FileInfo.Path %q is not absolute", f.Path)
		}
		if f.Size <= 0 {
			t.Errorf("FileInfo.Size for %s is %d, expected > 0", f.RelPath, f.Size)
		}
		if len(f.ContentHash) != 64 {
			t.Errorf("FileInfo.ContentHash for %s has length %d, expected 64", f.RelPath, len(f.ContentHash))
		}
		kinds[f.RelPath] = f.Kind
	}

	if kinds["annual_report.txt"] != KindText {
		t.Errorf("annual_report.txt kind = %q", kinds["annual_report.txt"])
	}
	if kinds["notes/meeting.md"] != KindMarkdown {
		t.Errorf("meeting.md kind = %q", kinds["notes/meeting.md"])
	}
	if kinds["scans/invoice.pdf"] != KindPDF {
		t.Errorf("invoice.pdf kind = %q", kinds["scans/invoice.pdf"])
	}
}

func TestWalk_ExcludeFilter(t *testing.T) {
	files, err := Walk(WalkerConfig{
		RootDir: testdataDir(t),
		Include: []string{"**/*.txt", "**/*.md"},
		Exclude: []string{"notes/**"},
	})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	got := relPaths(files)
	if len(got) != 1 || got[0] != "annual_report.txt" {
		t.Errorf("Walk() = %v, want [annual_report.txt]", got)
	}
}

func TestWalk_SkipsBinaryText(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ok.txt"), "plain words")
	writeFile(t, filepath.Join(dir, "bad.txt"), "nul\x00inside")
	writeFile(t, filepath.Join(dir, "photo.png"), "\x89PNG\x00\x00")

	files, err := Walk(WalkerConfig{RootDir: dir})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	got := relPaths(files)
	if len(got) != 2 || got[0] != "ok.txt" || got[1] != "photo.png" {
		t.Errorf("Walk() = %v, want [ok.txt photo.png]", got)
	}
}

func TestWalk_SkipsLargeFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "small.txt"), "tiny")
	writeFile(t, filepath.Join(dir, "large.txt"), string(make([]byte, 2048)))

	files, err := Walk(WalkerConfig{RootDir: dir, MaxFileSize: 100})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	got := relPaths(files)
	if len(got) != 1 || got[0] != "small.txt" {
		t.Errorf("Walk() = %v, want [small.txt]", got)
	}
}

func TestWalk_SingleFile(t *testing.T) {
	path := filepath.Join(testdataDir(t), "annual_report.txt")
	files, err := Walk(WalkerConfig{RootDir: path, Include: []string{"*.md"}})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected the named file, got %v", relPaths(files))
	}
	if files[0].RelPath != "annual_report.txt" || files[0].Kind != KindText {
		t.Errorf("unexpected file info %+v", files[0])
	}

	if _, err := Walk(WalkerConfig{RootDir: filepath.Join(t.TempDir(), "missing.txt")}); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestWalk_ContentHashConsistency(t *testing.T) {
	dir := testdataDir(t)
	first, err := Walk(WalkerConfig{RootDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	second, err := Walk(WalkerConfig{RootDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	hashes := map[string]string{}
	for _, f := range first {
		hashes[f.RelPath] = f.ContentHash
	}
	for _, f := range second {
		if hashes[f.RelPath] != f.ContentHash {
			t.Errorf("hash for %s changed between walks", f.RelPath)
		}
	}
}

func TestMatchesGitignore(t *testing.T) {
	tests := []struct {
		path     string
		patterns []string
		want     bool
	}{
		{"drafts/todo.txt", []string{"drafts/"}, true},
		{"drafts", []string{"drafts/"}, false},
		{"a/drafts/x.md", []string{"drafts/"}, true},
		{"notes.tmp", []string{"*.tmp"}, true},
		{"docs/private/a.txt", []string{"docs/private"}, true},
		{"docs/public/a.txt", []string{"docs/private"}, false},
		{"keep.txt", []string{"!keep.txt"}, false},
		{"anything.txt", nil, false},
	}
	for _, tt := range tests {
		if got := matchesGitignore(tt.path, tt.patterns); got != tt.want {
			t.Errorf("matchesGitignore(%q, %v) = %v, want %v", tt.path, tt.patterns, got, tt.want)
		}
	}
}

func TestDetectKind(t *testing.T) {
	tests := map[string]Kind{
		"report.txt":         KindText,
		"README.MD":          KindMarkdown,
		"scan.PDF":           KindPDF,
		"dir/photo.jpeg":     KindImage,
		"archive.zip":        KindUnknown,
		"no_extension":       KindUnknown,
		"path/to/notes.text": KindText,
	}
	for name, want := range tests {
		if got := DetectKind(name); got != want {
			t.Errorf("DetectKind(%q) = %q, want %q", name, got, want)
		}
	}
	if !KindMarkdown.Readable() || KindPDF.Readable() || KindImage.Readable() {
		t.Error("only text kinds are readable")
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
		path    string
		want    bool
	}{
		{"no patterns keep everything", nil, nil, "anything.txt", true},
		{"doublestar matches nested", []string{"**/*.md"}, nil, "a/b/c/report.md", true},
		{"doublestar matches root", []string{"**/*.md"}, nil, "report.md", true},
		{"base name pattern matches nested", []string{"*.txt"}, nil, "nested/report.txt", true},
		{"include miss", []string{"*.txt"}, nil, "notes/meeting.md", false},
		{"exclude wins", []string{"**/*.txt"}, []string{"archive/**"}, "archive/old.txt", false},
		{"exclude by base name", nil, []string{".DS_Store"}, "a/.DS_Store", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFilter(tt.include, tt.exclude)
			if err != nil {
				t.Fatalf("NewFilter() error: %v", err)
			}
			if got := f.Keep(tt.path); got != tt.want {
				t.Errorf("Keep(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestFilterRejectsInvalidPattern(t *testing.T) {
	if _, err := NewFilter([]string{"[a-"}, nil); err == nil {
		t.Error("expected error for unterminated character class")
	}
	if _, err := Walk(WalkerConfig{RootDir: testdataDir(t), Exclude: []string{"[a-"}}); err == nil {
		t.Error("Walk should reject invalid patterns")
	}
}
