package collector

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"power-monitor/internal/logging"
	"power-monitor/internal/model"
)

// ErrQueueFull is returned by Writer.Handle when the queue has no room.
var ErrQueueFull = errors.New("writer queue full")

// ErrWriterClosed is returned by Writer.Handle after Close.
var ErrWriterClosed = errors.New("writer closed")

// Sink stores fixed-point readings. *db.DB satisfies it.
type Sink interface {
	SaveValue(key string, value int64) error
}

// WriterStats counts what happened to handled samples.
type WriterStats struct {
	Saved   uint64
	Failed  uint64
	Dropped uint64
}

// Writer serializes samples from any number of collectors onto one Sink
// through a bounded queue drained by a single goroutine.
type Writer struct {
	sink Sink
	q    chan Sample
	done chan struct{}

	mu     sync.RWMutex
	closed bool

	saved, failed, dropped atomic.Uint64
	log                    *slog.Logger
}

// NewWriter starts the writer goroutine. queueSize <= 0 means 1000.
func NewWriter(sink Sink, queueSize int) *Writer {
	if queueSize <= 0 {
		queueSize = 1000
	}
	w := &Writer{
		sink: sink,
		q:    make(chan Sample, queueSize),
		done: make(chan struct{}),
		log:  logging.Component("writer"),
	}
	go w.loop()
	return w
}

func (w *Writer) loop() {
	defer close(w.done)
	for s := range w.q {
		if err := w.sink.SaveValue(s.Key, model.ToFixed(s.Value)); err != nil {
			w.failed.Add(1)
			w.log.Error("save value failed", "key", s.Key, "value", s.Value, "error", err)
			continue
		}
		w.saved.Add(1)
	}
}

// Handle enqueues s without blocking. It has the Handler signature.
func (w *Writer) Handle(s Sample) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWriterClosed
	}
	select {
	case w.q <- s:
		return nil
	default:
		w.dropped.Add(1)
		return ErrQueueFull
	}
}

// Close stops accepting samples and waits for the queue to drain.
func (w *Writer) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.q)
	}
	w.mu.Unlock()
	<-w.done
}

// Stats returns the current counters.
func (w *Writer) Stats() WriterStats {
	return WriterStats{
		Saved:   w.saved.Load(),
		Failed:  w.failed.Load(),
		Dropped: w.dropped.Load(),
	}
}
