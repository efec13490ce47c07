// Package audit implements the append-only plugin log stream behind Host.Log.
package audit

import (
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"go.uber.org/zap"

	"github.com/srediag/plugin-status/api"
)

const (
	defaultQueueCap = 1024
	defaultHistory  = 256
)

// Stream records plugin log lines. Each plugin keeps a bounded history for
// status reports; every line is also queued for Drain until the queue cap is
// reached, after which the oldest pending line is dropped.
type Stream struct {
	mu       sync.Mutex
	pending  *queue.Queue
	queueCap int64
	history  int
	seq      map[string]uint64
	entries  map[string][]api.LogEntry
	logger   *zap.Logger
	now      func() time.Time
}

var _ api.Audit = (*Stream)(nil)

// NewStream returns a stream. Non-positive sizes fall back to defaults.
func NewStream(logger *zap.Logger, queueCap, history int) *Stream {
	if queueCap <= 0 {
		queueCap = defaultQueueCap
	}
	if history <= 0 {
		history = defaultHistory
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{
		pending:  queue.New(int64(queueCap)),
		queueCap: int64(queueCap),
		history:  history,
		seq:      make(map[string]uint64),
		entries:  make(map[string][]api.LogEntry),
		logger:   logger.Named("plugin"),
		now:      time.Now,
	}
}

// Append records message for pluginID and returns the stored entry.
func (s *Stream) Append(pluginID, message string) api.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq[pluginID]++
	e := api.LogEntry{
		Plugin:  pluginID,
		Seq:     s.seq[pluginID],
		Message: message,
		Time:    s.now(),
	}

	hist := append(s.entries[pluginID], e)
	if len(hist) > s.history {
		hist = hist[len(hist)-s.history:]
	}
	s.entries[pluginID] = hist

	if s.pending.Len() >= s.queueCap {
		// non-empty, so Get does not block
		if _, err := s.pending.Get(1); err != nil {
			s.logger.Warn("drop pending log entry", zap.Error(err))
		}
	}
	if err := s.pending.Put(e); err != nil {
		s.logger.Warn("queue log entry", zap.Error(err))
	}

	s.logger.Info(message, zap.String("plugin", pluginID), zap.Uint64("seq", e.Seq))
	return e
}

// Entries returns the retained history for pluginID, oldest first.
func (s *Stream) Entries(pluginID string) []api.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.LogEntry(nil), s.entries[pluginID]...)
}

// LastSeq is the sequence number of the newest entry for pluginID.
func (s *Stream) LastSeq(pluginID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq[pluginID]
}

// Since returns retained entries for pluginID with a sequence number greater
// than seq.
func (s *Stream) Since(pluginID string, seq uint64) []api.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []api.LogEntry
	for _, e := range s.entries[pluginID] {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}

// Forget drops the history of pluginID. Sequence numbers keep increasing.
func (s *Stream) Forget(pluginID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, pluginID)
}

// Drain removes and returns every pending entry across all plugins.
func (s *Stream) Drain() []api.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending.Empty() {
		return nil
	}
	items, err := s.pending.Get(s.pending.Len())
	if err != nil {
		s.logger.Warn("drain log queue", zap.Error(err))
		return nil
	}
	out := make([]api.LogEntry, 0, len(items))
	for _, it := range items {
		if e, ok := it.(api.LogEntry); ok {
			out = append(out, e)
		}
	}
	return out
}

// Close disposes the pending queue.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Dispose()
}
