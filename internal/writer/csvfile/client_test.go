package csvfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tamzrod/modbus-reader/internal/register"
)

func sampleBatch() register.BatchResult {
	return register.BatchResult{
		Results: []register.AddressResult{
			{Address: 0, RawValue: 7, ParsedValue: "7", Success: true, DataType: "uint16"},
			{Address: 1, ParsedValue: "0", Success: false, Error: "Read timeout", DataType: "uint16"},
			{Address: 10, RawValue: 0x42280000, ParsedValue: "42", Success: true, DataType: "float32"},
		},
		TotalCount:   3,
		SuccessCount: 2,
		FailedCount:  1,
		Timestamp:    "2024-05-01T10:00:00Z",
		DurationMs:   12,
	}
}

func TestClient_HeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "out.csv")
	c, err := Open(Config{Path: path, Columns: []uint16{0, 1, 10, 11}})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	at := time.Date(2024, 5, 1, 10, 0, 0, 123e6, time.Local)
	if err := c.WriteBatch("u1", at, sampleBatch()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines=%q", lines)
	}
	if lines[0] != "timestamp,addr_0,addr_1,addr_10,addr_11" {
		t.Fatalf("header=%q", lines[0])
	}
	if lines[1] != "2024-05-01 10:00:00.123,7,ERROR,42," {
		t.Fatalf("row=%q", lines[1])
	}
}

func TestOpen_TruncatesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := os.WriteFile(path, []byte("old,data\n1,2\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c, err := Open(Config{Path: path, Columns: []uint16{5}})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = c.Close()

	raw, _ := os.ReadFile(path)
	if string(raw) != "timestamp,addr_5\n" {
		t.Fatalf("content=%q", raw)
	}
}

func TestOpen_Rejects(t *testing.T) {
	if _, err := Open(Config{Columns: []uint16{1}}); err == nil {
		t.Fatalf("expected path error")
	}
	if _, err := Open(Config{Path: filepath.Join(t.TempDir(), "x.csv")}); err == nil {
		t.Fatalf("expected columns error")
	}
}

func TestExport(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, []register.BatchResult{sampleBatch()}); err != nil {
		t.Fatalf("export: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	wantHeader := "Timestamp,Success_Count,Failed_Count,Duration_ms,Addr_0_Raw,Addr_0_Parsed,Addr_1_Raw,Addr_1_Parsed,Addr_10_Raw,Addr_10_Parsed"
	if lines[0] != wantHeader {
		t.Fatalf("header=%q", lines[0])
	}
	wantRow := "2024-05-01T10:00:00Z,2,1,12,7,7,ERROR,Read timeout,1109917696,42"
	if lines[1] != wantRow {
		t.Fatalf("row=%q", lines[1])
	}

	if err := Export(&buf, nil); err == nil {
		t.Fatalf("expected error for empty export")
	}
}
