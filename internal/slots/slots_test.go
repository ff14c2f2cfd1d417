package slots

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnumerate(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"video0", "video2", "video11", "videoX", "null", "vcs0"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	p := DevProvider{Dir: dir}
	got, err := p.Enumerate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[int]string{
		0:  filepath.Join(dir, "video0"),
		2:  filepath.Join(dir, "video2"),
		11: filepath.Join(dir, "video11"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for slot, path := range want {
		if got[slot] != path {
			t.Errorf("slot %d = %q, want %q", slot, got[slot], path)
		}
	}
}

func TestEnumerateEmptyDir(t *testing.T) {
	p := DevProvider{Dir: t.TempDir()}
	got, err := p.Enumerate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no slots, got %v", got)
	}
}

func TestEnumerateMissingDir(t *testing.T) {
	p := DevProvider{Dir: filepath.Join(t.TempDir(), "nope")}
	if _, err := p.Enumerate(); err == nil {
		t.Error("expected error for missing directory")
	}
}
