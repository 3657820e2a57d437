package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileLedger is an append-only JSONL ledger. One entry per line, fsync
// on every append, chain tail recovered on open.
type FileLedger struct {
	path string

	mu       sync.Mutex
	file     *os.File
	nextIdx  uint64
	prevHash string
	now      func() time.Time
}

// OpenFile opens (or creates) a JSONL ledger. An existing file is
// scanned to recover the next index and the chain tail.
func OpenFile(path string) (*FileLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}

	nextIdx := uint64(0)
	prevHash := GenesisHash

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		entries, err := readEntries(path)
		if err != nil {
			return nil, fmt.Errorf("ledger: recover chain tail: %w", err)
		}
		if n := len(entries); n > 0 {
			last := entries[n-1]
			nextIdx = last.Index + 1
			prevHash = last.Hash
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("ledger: open file: %w", err)
	}

	return &FileLedger{
		path:     path,
		file:     file,
		nextIdx:  nextIdx,
		prevHash: prevHash,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Path returns the backing file path (watched by the tamper monitor).
func (l *FileLedger) Path() string { return l.path }

// Append commits one event under the writer lock. The lock is held
// through the durable write so index assignment and chaining are
// strictly ordered; it is released on every exit path including the
// write-failure path.
func (l *FileLedger) Append(ev Event) (Entry, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: marshal payload: %v", ErrWriteFailure, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{
		Index:     l.nextIdx,
		PrevHash:  l.prevHash,
		Type:      ev.Type,
		Payload:   payload,
		Timestamp: l.now().Format(TimestampFormat),
	}
	e.seal()

	line, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: marshal entry: %v", ErrWriteFailure, err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return Entry{}, fmt.Errorf("%w: write: %v", ErrWriteFailure, err)
	}
	if err := l.file.Sync(); err != nil {
		return Entry{}, fmt.Errorf("%w: sync: %v", ErrWriteFailure, err)
	}

	l.nextIdx = e.Index + 1
	l.prevHash = e.Hash
	return e, nil
}

// Len returns the number of committed entries.
func (l *FileLedger) Len() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextIdx
}

// ExportRange reads entries with from <= index <= to from disk.
func (l *FileLedger) ExportRange(from, to uint64) ([]Entry, error) {
	l.mu.Lock()
	n := l.nextIdx
	l.mu.Unlock()

	from, to, ok := clampRange(from, to, n)
	if !ok {
		return nil, nil
	}

	entries, err := readEntries(l.path)
	if err != nil {
		return nil, err
	}
	if uint64(len(entries)) <= to {
		return nil, fmt.Errorf("%w: index %d past end of file", ErrNotFound, to)
	}
	out := make([]Entry, to-from+1)
	copy(out, entries[from:to+1])
	return out, nil
}

// Verify walks the file from index 0 and validates the full chain.
// An unparseable line corrupts the chain at its own index: whatever
// parsed before it may still verify, nothing after it is trusted.
func (l *FileLedger) Verify() VerifyResult {
	entries, err := readEntries(l.path)
	if err != nil {
		if res := verifyChain(entries); !res.Valid {
			return res
		}
		return corrupt(uint64(len(entries)), err.Error())
	}
	return verifyChain(entries)
}

// Close flushes and closes the backing file.
func (l *FileLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// readEntries parses every JSONL line in the file. A malformed line is
// reported as a parse error rather than skipped: a line that cannot be
// parsed cannot be trusted, and neither can anything after it.
func readEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: open: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return entries, fmt.Errorf("ledger: parse line %d: %w", lineNum, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("ledger: scan: %w", err)
	}
	return entries, nil
}
