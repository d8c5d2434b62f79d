package logreader

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// lineStarts returns the byte offset of every line start in content
func lineStarts(content string) []int64 {
	var starts []int64
	if content == "" {
		return starts
	}
	starts = append(starts, 0)
	for i := 0; i < len(content)-1; i++ {
		if content[i] == '\n' {
			starts = append(starts, int64(i+1))
		}
	}
	return starts
}

func reversed(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[len(lines)-1-i] = l
	}
	return out
}

func TestScanBackwardFileMatchesForwardSplit(t *testing.T) {
	long := strings.Repeat("x", 20000)
	tests := []struct {
		name    string
		content string
	}{
		{"simple", "a\nbb\nccc\n"},
		{"no trailing newline", "a\nbb\nccc"},
		{"empty lines", "\n\nx\n\ny\n"},
		{"long line across chunks", "first\n" + long + "\nlast\n"},
		{"unicode", "строка один\nzwei ✓\ntrois\n"},
	}
	chunkSizes := []int{1, 2, 3, 7, 64, DefaultChunkSize}

	for _, tt := range tests {
		all := strings.Split(strings.TrimSuffix(tt.content, "\n"), "\n")
		starts := lineStarts(tt.content)
		for idx, start := range starts {
			want := reversed(all[:idx+1])
			for _, cs := range chunkSizes {
				got, err := ScanBackwardFile(strings.NewReader(tt.content), start, cs)
				if err != nil {
					t.Fatalf("%s: ScanBackwardFile(start=%d, chunk=%d) error = %v", tt.name, start, cs, err)
				}
				if !reflect.DeepEqual(got, want) {
					t.Errorf("%s: ScanBackwardFile(start=%d, chunk=%d) = %q, want %q", tt.name, start, cs, got, want)
				}
			}
		}
	}
}

func TestBackwardScannerOffsets(t *testing.T) {
	content := "a\nbb\nccc\ndddd\n"
	s := NewBackwardScanner(strings.NewReader(content), 9, 3)

	want := []Line{
		{Text: "dddd", Start: 9, End: 14, Complete: true},
		{Text: "ccc", Start: 5, End: 9, Complete: true},
		{Text: "bb", Start: 2, End: 5, Complete: true},
		{Text: "a", Start: 0, End: 2, Complete: true},
	}
	for i, w := range want {
		got, err := s.Next()
		if err != nil {
			t.Fatalf("Next() #%d error = %v", i, err)
		}
		if got != w {
			t.Errorf("Next() #%d = %+v, want %+v", i, got, w)
		}
		if content[got.Start:got.End] != got.Text+"\n" {
			t.Errorf("line %q does not match file bytes %q", got.Text, content[got.Start:got.End])
		}
	}
	if _, err := s.Next(); err == nil {
		t.Error("expected io.EOF after byte 0")
	}
}

func TestScanBackwardStartZero(t *testing.T) {
	got, err := ScanBackwardFile(strings.NewReader("only\nmore\n"), 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"only"}) {
		t.Errorf("got %q, want only the pivot", got)
	}
}

func TestScanBackwardPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pacman.log")
	if err := os.WriteFile(path, []byte("l1\nl2\nl3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := ScanBackward(path, 6)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"l3", "l2", "l1"}) {
		t.Errorf("got %q", got)
	}

	if _, err := ScanBackward(filepath.Join(t.TempDir(), "missing.log"), 0); err == nil {
		t.Error("expected error for missing file")
	}
}
