// Package eventlog implements the append-only, per-line-atomic JSONL event
// log that is the runner's sole system-of-record.
package eventlog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/northroot-labs/pipelinerunner/internal/runner/contracts"
)

// FileName is the on-disk name of the event log within a run directory.
const FileName = "events.jsonl"

// EventLog is a single run's append-only event file. A process owns at
// most one writer per run directory; concurrent writers are undefined.
type EventLog struct {
	path string
	w    *os.File
}

// Open creates the run directory if missing, creates events.jsonl with
// restrictive permissions if it does not already exist, and returns a
// log ready for Append. The file is opened in append mode so every write
// lands at EOF regardless of concurrent readers' offsets.
func Open(runDir string) (*EventLog, error) {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("eventlog: create run dir: %w", err)
	}
	path := filepath.Join(runDir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}
	return &EventLog{path: path, w: f}, nil
}

// Path returns the absolute-or-relative path of the underlying file, as
// passed to Open.
func (l *EventLog) Path() string { return l.path }

// Close releases the writer's file handle. Safe to call once; further
// Append calls will fail.
func (l *EventLog) Close() error {
	if l.w == nil {
		return nil
	}
	err := l.w.Close()
	l.w = nil
	return err
}

// Append persists a single event as one compact JSON line terminated by a
// newline. The marshal-then-single-Write sequence keeps the append atomic
// from a concurrent tailer's perspective: a reader never observes a
// partial line, because the line and its delimiter reach the OS in one
// write(2) call. A single local os.File.Write already lands in the page
// cache before returning, so every append is durable across readers
// without a separate fsync.
func (l *EventLog) Append(e contracts.Event) error {
	if l.w == nil {
		return fmt.Errorf("eventlog: append to closed log")
	}
	line, err := e.ToJSONLine()
	if err != nil {
		return fmt.Errorf("eventlog: encode event: %w", err)
	}
	line = append(line, '\n')
	if _, err := l.w.Write(line); err != nil {
		return fmt.Errorf("eventlog: append: %w", err)
	}
	return nil
}

// ReadAll returns every event in the log, in insertion order. It opens the
// file independently of any writer so it may be called concurrently with
// Append.
func ReadAll(runDir string) ([]contracts.Event, error) {
	path := filepath.Join(runDir, FileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}
	defer f.Close()
	return decodeAll(f)
}

func decodeAll(r io.Reader) ([]contracts.Event, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	var events []contracts.Event
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e contracts.Event
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("eventlog: decode line: %w", err)
		}
		events = append(events, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("eventlog: scan: %w", err)
	}
	return events, nil
}

// Tail returns the last n events in the log (fewer if the log is
// shorter). n <= 0 returns an empty slice.
func Tail(runDir string, n int) ([]contracts.Event, error) {
	if n <= 0 {
		return nil, nil
	}
	all, err := ReadAll(runDir)
	if err != nil {
		return nil, err
	}
	if len(all) <= n {
		return all, nil
	}
	return all[len(all)-n:], nil
}

// Stream emits every event currently in the log, then — if follow is true
// — continues polling for newly appended lines until ctx is cancelled.
// The returned channel is closed when streaming ends (EOF with
// follow=false, ctx cancellation, or an error, which is sent on errc
// first).
func Stream(ctx context.Context, runDir string, follow bool) (<-chan contracts.Event, <-chan error) {
	out := make(chan contracts.Event)
	errc := make(chan error, 1)

	go func() {
		defer close(out)

		path := filepath.Join(runDir, FileName)
		f, err := os.Open(path)
		if err != nil {
			errc <- fmt.Errorf("eventlog: open %s: %w", path, err)
			return
		}
		defer f.Close()

		r := bufio.NewReaderSize(f, 64*1024)
		const pollInterval = 200 * time.Millisecond

		for {
			line, err := r.ReadBytes('\n')
			if len(line) > 0 && err == nil {
				var e contracts.Event
				trimmed := line[:len(line)-1]
				if len(trimmed) > 0 {
					if decErr := json.Unmarshal(trimmed, &e); decErr != nil {
						errc <- fmt.Errorf("eventlog: decode line: %w", decErr)
						return
					}
					select {
					case out <- e:
					case <-ctx.Done():
						return
					}
				}
				continue
			}
			if err == io.EOF {
				if !follow {
					return
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(pollInterval):
				}
				continue
			}
			if err != nil {
				errc <- fmt.Errorf("eventlog: stream: %w", err)
				return
			}
		}
	}()

	return out, errc
}
