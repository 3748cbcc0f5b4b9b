package trace

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriterWritesDatedJSONL(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, 16, 1)

	at := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	for _, kind := range []string{"pointer.down", "pointer.up"} {
		if err := w.Write(Record{At: at, ChartID: "c1", Kind: kind, Data: map[string]float64{"x": 1}}); err != nil {
			t.Fatalf("Write() = %v; want nil", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() = %v; want nil", err)
	}

	f, err := os.Open(filepath.Join(dir, "2026-03-04", "interactions.jsonl"))
	if err != nil {
		t.Fatalf("open trace file: %v", err)
	}
	defer f.Close()

	var kinds []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("json.Unmarshal(%q) = %v", sc.Text(), err)
		}
		kinds = append(kinds, rec.Kind)
	}
	if len(kinds) != 2 || kinds[0] != "pointer.down" || kinds[1] != "pointer.up" {
		t.Fatalf("kinds = %v; want [pointer.down pointer.up]", kinds)
	}
}

func TestWriteAfterCloseFails(t *testing.T) {
	w := New(t.TempDir(), 1, 1)
	if err := w.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := w.Write(Record{Kind: "x"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Write() after Close = %v; want ErrClosed", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close() = %v; want nil", err)
	}
}
