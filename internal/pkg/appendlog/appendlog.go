// Package appendlog implements a durable, append-only JSON-lines file.
//
// Every record is one line written with a single write call and fsynced
// before Append returns. A crash mid-write can only leave a torn final line
// without its newline; Open detects and truncates that tail, so every
// acknowledged record survives and no partial record is ever read back.
package appendlog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ignite/phishing-simulator/internal/pkg/logger"
)

// ErrCorrupt is returned by Open when a complete line cannot be decoded by
// the caller's replay function.
var ErrCorrupt = errors.New("appendlog: corrupt record")

// ErrReadOnly is returned by Append on a log opened with ReadOnly.
var ErrReadOnly = errors.New("appendlog: log is read-only")

// File is an append-only log file. Safe for concurrent use.
type File struct {
	mu       sync.Mutex
	f        *os.File
	path     string
	size     int64
	count    int64
	nosync   bool
	readonly bool
}

// Option configures a File.
type Option func(*File)

// WithoutSync skips fsync after each append. Only for tests and benchmarks.
func WithoutSync() Option {
	return func(f *File) { f.nosync = true }
}

// ReadOnly opens the log for reading only, as a second process does while
// a writer is live. The file is never created or modified: a missing file
// reads as empty and an incomplete final line is skipped, not truncated.
func ReadOnly() Option {
	return func(f *File) { f.readonly = true }
}

// Open opens or creates the log at path. replay is called for every complete
// record in file order; it may be nil. A torn trailing line is truncated.
func Open(path string, replay func(line []byte) error, opts ...Option) (*File, error) {
	lf := &File{path: path}
	for _, opt := range opts {
		opt(lf)
	}
	if lf.readonly {
		return openReadOnly(lf, replay)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	lf.f = f

	valid, count, err := scan(f, -1, replay)
	if err != nil {
		f.Close()
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > valid {
		logger.Warn("appendlog: truncating torn tail",
			"path", path, "bytes", info.Size()-valid)
		if err := f.Truncate(valid); err != nil {
			f.Close()
			return nil, fmt.Errorf("truncating torn tail of %s: %w", path, err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, fmt.Errorf("sync %s: %w", path, err)
		}
	}

	lf.size = valid
	lf.count = count
	return lf, nil
}

func openReadOnly(lf *File, replay func(line []byte) error) (*File, error) {
	f, err := os.Open(lf.path)
	if errors.Is(err, os.ErrNotExist) {
		return lf, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", lf.path, err)
	}
	defer f.Close()

	valid, count, err := scan(f, -1, replay)
	if err != nil {
		return nil, err
	}
	lf.size = valid
	lf.count = count
	return lf, nil
}

// Append writes one record. encode receives the 1-based sequence number the
// record will occupy and returns its JSON encoding, which must not contain a
// newline. Either the whole record is durable when Append returns nil, or
// the file is left exactly as it was.
func (l *File) Append(encode func(seq int64) ([]byte, error)) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.readonly {
		return 0, ErrReadOnly
	}
	if l.f == nil {
		return 0, fmt.Errorf("appendlog: %s is closed", l.path)
	}

	seq := l.count + 1
	data, err := encode(seq)
	if err != nil {
		return 0, fmt.Errorf("encoding record: %w", err)
	}
	if bytes.IndexByte(data, '\n') >= 0 {
		return 0, fmt.Errorf("appendlog: record contains a newline")
	}

	line := make([]byte, 0, len(data)+1)
	line = append(line, data...)
	line = append(line, '\n')

	n, err := l.f.Write(line)
	if err == nil && !l.nosync {
		err = l.f.Sync()
	}
	if err != nil {
		if n > 0 {
			// Roll back a short or unsynced write so a later append cannot
			// glue onto a partial record.
			if terr := l.f.Truncate(l.size); terr != nil {
				logger.Error("appendlog: rollback failed", "path", l.path, "error", terr)
			}
		}
		return 0, fmt.Errorf("writing %s: %w", l.path, err)
	}

	l.size += int64(n)
	l.count = seq
	return seq, nil
}

// Len returns the number of records appended so far.
func (l *File) Len() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Snapshot calls fn for every record present at call time, in append order.
// Records appended while the snapshot is read are not visited.
func (l *File) Snapshot(fn func(line []byte) error) error {
	l.mu.Lock()
	size := l.size
	l.mu.Unlock()
	if size == 0 {
		return nil
	}

	r, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", l.path, err)
	}
	defer r.Close()

	_, _, err = scan(r, size, fn)
	return err
}

// Path returns the file location.
func (l *File) Path() string { return l.path }

// Close releases the file handle.
func (l *File) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// scan reads newline-terminated records from r, up to limit bytes when
// limit >= 0. It returns the byte offset just past the last complete record
// and the number of records seen.
func scan(r io.Reader, limit int64, fn func(line []byte) error) (int64, int64, error) {
	if limit >= 0 {
		r = io.LimitReader(r, limit)
	}
	br := bufio.NewReaderSize(r, 64*1024)

	var offset, count int64
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			count++
			if fn != nil {
				if ferr := fn(line[:len(line)-1]); ferr != nil {
					return offset, count, fmt.Errorf("%w at record %d: %v", ErrCorrupt, count, ferr)
				}
			}
			offset += int64(len(line))
		}
		if err == io.EOF {
			return offset, count, nil
		}
		if err != nil {
			return offset, count, fmt.Errorf("reading log: %w", err)
		}
	}
}
