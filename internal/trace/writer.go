// Package trace records chart interaction events as JSON lines, one
// directory per UTC day, rotated by size through lumberjack.
package trace

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	ErrClosed     = errors.New("trace writer is closed")
	ErrBufferFull = errors.New("trace buffer full")
)

// Record is one traced event.
type Record struct {
	At      time.Time `json:"at"`
	ChartID string    `json:"chart_id"`
	Kind    string    `json:"kind"`
	Data    any       `json:"data,omitempty"`
}

// Writer queues records and writes them from a single goroutine. Write never
// blocks; records are dropped when the buffer is full.
type Writer struct {
	baseDir   string
	maxSizeMB int
	now       func() time.Time

	writeCh chan Record
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	mu          sync.Mutex
	currentDate string
	logger      *lumberjack.Logger
}

func New(baseDir string, bufferSize, maxSizeMB int) *Writer {
	w := &Writer{
		baseDir:   baseDir,
		maxSizeMB: maxSizeMB,
		now:       time.Now,
		writeCh:   make(chan Record, bufferSize),
		done:      make(chan struct{}),
	}
	w.wg.Add(1)
	go w.writeLoop()
	return w
}

// Write queues rec, stamping At when unset.
func (w *Writer) Write(rec Record) error {
	if rec.At.IsZero() {
		rec.At = w.now().UTC()
	}
	select {
	case <-w.done:
		return ErrClosed
	default:
	}
	select {
	case w.writeCh <- rec:
		return nil
	default:
		slog.Warn("trace buffer full, dropping record", "chart_id", rec.ChartID, "kind", rec.Kind)
		return ErrBufferFull
	}
}

// Close stops the writer after flushing queued records.
func (w *Writer) Close() error {
	w.once.Do(func() { close(w.done) })
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logger != nil {
		return w.logger.Close()
	}
	return nil
}

func (w *Writer) writeLoop() {
	defer w.wg.Done()
	for {
		select {
		case rec := <-w.writeCh:
			w.writeRecord(rec)
		case <-w.done:
			for {
				select {
				case rec := <-w.writeCh:
					w.writeRecord(rec)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) writeRecord(rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		slog.Error("trace marshal failed", "kind", rec.Kind, "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	date := rec.At.UTC().Format("2006-01-02")
	if date != w.currentDate || w.logger == nil {
		if err := w.rotateForDate(date); err != nil {
			slog.Error("trace rotate failed", "date", date, "error", err)
			return
		}
	}
	if _, err := w.logger.Write(append(data, '\n')); err != nil {
		slog.Error("trace write failed", "kind", rec.Kind, "error", err)
	}
}

func (w *Writer) rotateForDate(date string) error {
	if w.logger != nil {
		if err := w.logger.Close(); err != nil {
			slog.Debug("trace close failed", "error", err)
		}
		w.logger = nil
	}
	dir := filepath.Join(w.baseDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create trace dir: %w", err)
	}
	filename := filepath.Join(dir, "interactions.jsonl")
	w.logger = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    w.maxSizeMB,
		MaxBackups: 30,
		MaxAge:     30,
	}
	w.currentDate = date
	slog.Info("trace file opened", "file", filename)
	return nil
}
