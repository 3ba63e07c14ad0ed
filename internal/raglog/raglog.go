// Package raglog keeps an append-only CSV record of every retrieval tool
// invocation. The log is observability only: every failure inside it is
// swallowed after logging, and a disabled or broken log never affects the
// conversation turn that triggered it.
package raglog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

var header = []string{
	"index",
	"conversation_id",
	"timestamp",
	"query",
	"top_k",
	"scam_results",
	"scam_distances",
	"strategy_results",
	"llm_model",
}

// NoConversation marks entries logged before a conversation id exists.
const NoConversation int64 = -1

// Entry is one tool invocation. Result id and distance slices are
// serialized as semicolon-joined lists so the CSV stays one row per call.
type Entry struct {
	ConversationID int64
	Query          string
	TopK           int
	ScamResults    []int64
	ScamDistances  []float64
	StrategyIDs    []int64
	Model          string
}

// Logger appends invocation entries to a CSV file. A zero-path Logger is
// disabled and drops entries silently. Safe for concurrent use; cross-
// process appends are serialized with a sidecar flock, and the row index
// is re-derived under that lock whenever another writer has grown the
// file, so indexes stay unique across worker processes.
type Logger struct {
	path string
	log  zerolog.Logger

	mu       sync.Mutex
	next     int64
	lastSize int64 // file size after our last append; -1 forces a rescan
}

// New opens (or creates) the CSV log at path. An empty path disables
// logging. Index recovery happens on append, under the cross-process
// lock, so it accounts for rows written by other processes too.
func New(path string, log zerolog.Logger) *Logger {
	l := &Logger{path: path, log: log, lastSize: -1}
	if path == "" {
		return l
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Error().Err(err).Str("path", path).Msg("rag log dir create failed; logging disabled")
		l.path = ""
	}
	return l
}

// Enabled reports whether entries will be written.
func (l *Logger) Enabled() bool { return l.path != "" }

// Append writes one entry. Failures are logged and swallowed.
func (l *Logger) Append(e Entry) {
	if l.path == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	lock := flock.New(l.path + ".lock")
	if err := lock.Lock(); err != nil {
		l.log.Error().Err(err).Msg("rag log flock failed; entry dropped")
		return
	}
	defer func() { _ = lock.Unlock() }()

	newFile := false
	fi, err := os.Stat(l.path)
	switch {
	case os.IsNotExist(err):
		// keep l.next as-is: indexes stay monotonic even if the file
		// was removed underneath us
		newFile = true
	case err != nil:
		l.log.Error().Err(err).Str("path", l.path).Msg("rag log stat failed; entry dropped")
		return
	case fi.Size() != l.lastSize:
		// the file is append-only, so a size change means another
		// process wrote rows since our last append
		l.next = recoverNextIndex(l.path)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.log.Error().Err(err).Str("path", l.path).Msg("rag log open failed; entry dropped")
		return
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write(header); err != nil {
			l.log.Error().Err(err).Msg("rag log header write failed; entry dropped")
			return
		}
	}
	row := []string{
		strconv.FormatInt(l.next, 10),
		strconv.FormatInt(e.ConversationID, 10),
		time.Now().UTC().Format(time.RFC3339),
		e.Query,
		strconv.Itoa(e.TopK),
		joinInt64(e.ScamResults),
		joinFloat64(e.ScamDistances),
		joinInt64(e.StrategyIDs),
		e.Model,
	}
	if err := w.Write(row); err != nil {
		l.log.Error().Err(err).Msg("rag log row write failed; entry dropped")
		return
	}
	w.Flush()
	if err := w.Error(); err != nil {
		l.log.Error().Err(err).Msg("rag log flush failed; entry dropped")
		return
	}
	if fi, err := f.Stat(); err == nil {
		l.lastSize = fi.Size()
	} else {
		l.lastSize = -1
	}
	l.next++
}

// recoverNextIndex scans an existing log for the highest index so the
// sequence continues after a restart or a write by another process.
// Unreadable files start from 0.
func recoverNextIndex(path string) int64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil || len(rows) == 0 {
		return 0
	}
	var max int64 = -1
	for _, row := range rows {
		if len(row) == 0 || row[0] == header[0] {
			continue
		}
		if n, err := strconv.ParseInt(row[0], 10, 64); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

func joinInt64(vals []int64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ";")
}

func joinFloat64(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	return strings.Join(parts, ";")
}
