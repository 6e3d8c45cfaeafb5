package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reelcut/reelcut-agent/internal/history"
)

func TestCopyArtifact(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	dest := filepath.Join(dir, "dest.mp4")
	if err := os.WriteFile(src, []byte("video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyArtifact(src, dest); err != nil {
		t.Fatalf("copy: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "video bytes" {
		t.Errorf("dest content = %q", got)
	}

	// Source must be untouched.
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source missing after copy: %v", err)
	}
}

func TestCopyArtifactMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyArtifact(filepath.Join(dir, "nope.mp4"), filepath.Join(dir, "out.mp4"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestWriteLog(t *testing.T) {
	dir := t.TempDir()
	exported := filepath.Join(dir, "final.mp4")

	path, err := WriteLog(exported, Log{
		SessionID:    "s1",
		OriginalPath: "/videos/clip.mp4",
		EditCount:    2,
		Chain:        []string{"/videos/clip.mp4", "/work/clip_edit_1_trim.mp4"},
	})
	if err != nil {
		t.Fatalf("write log: %v", err)
	}
	if filepath.Base(path) != "final.editlog.json" {
		t.Errorf("sidecar name = %q", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var log Log
	if err := json.Unmarshal(data, &log); err != nil {
		t.Fatalf("sidecar is not valid JSON: %v", err)
	}
	if log.ExportedPath != exported {
		t.Errorf("exported_path = %q", log.ExportedPath)
	}
	if log.ExportedAt.IsZero() {
		t.Error("exported_at should be set")
	}
}

func TestGenerateCutSheet(t *testing.T) {
	entries := []history.Entry{
		{Kind: history.EntryLoad, ArtifactPath: "/videos/clip.mp4"},
		{Kind: history.EntryCommit, Action: "trim", ArtifactPath: "/work/clip_edit_1_trim.mp4"},
		{Kind: history.EntryCommit, Action: "blur", ArtifactPath: "/work/clip_edit_2_blur.mp4"},
		{Kind: history.EntryUndo, ArtifactPath: "/work/clip_edit_1_trim.mp4"},
	}

	sheet := GenerateCutSheet("clip.mp4", entries)

	if !strings.Contains(sheet, "EDIT LOG: clip.mp4") {
		t.Errorf("missing title:\n%s", sheet)
	}
	if !strings.Contains(sheet, "001  trim") {
		t.Errorf("missing first numbered edit:\n%s", sheet)
	}
	if !strings.Contains(sheet, "002  blur") {
		t.Errorf("missing second numbered edit:\n%s", sheet)
	}
	if !strings.Contains(sheet, "UNDO") {
		t.Errorf("missing undo line:\n%s", sheet)
	}
}

func TestGenerateCutSheetNoEdits(t *testing.T) {
	sheet := GenerateCutSheet("clip.mp4", []history.Entry{
		{Kind: history.EntryLoad, ArtifactPath: "/videos/clip.mp4"},
	})
	if !strings.Contains(sheet, "(no edits applied)") {
		t.Errorf("expected empty-edit marker:\n%s", sheet)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"My Video (final).mp4", 0, "My Video (final).mp4"},
		{"a/b\\c:d", 0, "a_b_c_d"},
		{"with\x00control", 0, "withcontrol"},
		{"  padded  ", 0, "padded"},
		{"abcdefgh", 4, "abcd"},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("SanitizeName(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestValidateDestDir(t *testing.T) {
	dir := t.TempDir()
	if err := ValidateDestDir(dir); err != nil {
		t.Errorf("valid dir rejected: %v", err)
	}
	if err := ValidateDestDir(""); err == nil {
		t.Error("empty dir accepted")
	}
	if err := ValidateDestDir(filepath.Join(dir, "..", "elsewhere")); err == nil {
		t.Error("traversal accepted")
	}
	if err := ValidateDestDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("missing dir accepted")
	}

	file := filepath.Join(dir, "f.txt")
	os.WriteFile(file, []byte("x"), 0o644)
	if err := ValidateDestDir(file); err == nil {
		t.Error("file accepted as directory")
	}
}
