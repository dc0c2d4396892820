// internal/writer/csvfile/client.go
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/tamzrod/modbus-reader/internal/register"
)

// TimeLayout is the row timestamp layout, in local time.
const TimeLayout = "2006-01-02 15:04:05.000"

// ErrorCell marks an address that failed in a batch.
const ErrorCell = "ERROR"

// Client appends one row per batch to a CSV file with a fixed column set.
type Client struct {
	mu    sync.Mutex
	f     *os.File
	w     *csv.Writer
	cols  []uint16
	index map[uint16]int
}

type Config struct {
	Path    string
	Columns []uint16
}

// Open creates (or truncates) the file and writes the header row.
func Open(cfg Config) (*Client, error) {
	if cfg.Path == "" {
		return nil, errors.New("writer csv: path required")
	}
	if len(cfg.Columns) == 0 {
		return nil, errors.New("writer csv: at least one column required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("writer csv: create directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("writer csv: %w", err)
	}

	c := &Client{
		f:     f,
		w:     csv.NewWriter(f),
		cols:  cfg.Columns,
		index: make(map[uint16]int, len(cfg.Columns)),
	}
	for i, a := range cfg.Columns {
		c.index[a] = i
	}

	if err := c.writeRow(Header(cfg.Columns)); err != nil {
		_ = f.Close()
		return nil, err
	}
	return c, nil
}

// WriteBatch appends one row. The unit id is not part of the layout.
func (c *Client) WriteBatch(_ string, at time.Time, b register.BatchResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeRow(c.row(at, b))
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.w.Flush()
	ferr := c.w.Error()
	if err := c.f.Close(); err != nil {
		return err
	}
	return ferr
}

func (c *Client) writeRow(rec []string) error {
	if err := c.w.Write(rec); err != nil {
		return fmt.Errorf("writer csv: %w", err)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("writer csv: %w", err)
	}
	return nil
}

// row fills each tracked address with its decoded value or ERROR. The low
// word of a 32-bit pair has no entry of its own and stays empty.
func (c *Client) row(at time.Time, b register.BatchResult) []string {
	rec := make([]string, 1+len(c.cols))
	rec[0] = at.Local().Format(TimeLayout)

	for _, r := range b.Results {
		i, ok := c.index[r.Address]
		if !ok {
			continue
		}
		if r.Success {
			rec[1+i] = r.ParsedValue
		} else {
			rec[1+i] = ErrorCell
		}
	}
	return rec
}

// Header is "timestamp" followed by one addr_<n> column per address.
func Header(cols []uint16) []string {
	h := make([]string, 0, 1+len(cols))
	h = append(h, "timestamp")
	for _, a := range cols {
		h = append(h, "addr_"+strconv.Itoa(int(a)))
	}
	return h
}

// ---- bulk export ----

// Export writes batches in the summary layout: counts and duration per
// row, then raw and parsed value for every result of the first batch's
// shape. Failed entries carry ERROR and their message.
func Export(w io.Writer, batches []register.BatchResult) error {
	if len(batches) == 0 {
		return errors.New("writer csv: no data to export")
	}

	cw := csv.NewWriter(w)

	header := []string{"Timestamp", "Success_Count", "Failed_Count", "Duration_ms"}
	for _, r := range batches[0].Results {
		a := strconv.Itoa(int(r.Address))
		header = append(header, "Addr_"+a+"_Raw", "Addr_"+a+"_Parsed")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, b := range batches {
		rec := []string{
			b.Timestamp,
			strconv.Itoa(b.SuccessCount),
			strconv.Itoa(b.FailedCount),
			strconv.FormatUint(b.DurationMs, 10),
		}
		for _, r := range b.Results {
			if r.Success {
				rec = append(rec, strconv.FormatUint(uint64(r.RawValue), 10), r.ParsedValue)
				continue
			}
			msg := r.Error
			if msg == "" {
				msg = ErrorCell
			}
			rec = append(rec, ErrorCell, msg)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
