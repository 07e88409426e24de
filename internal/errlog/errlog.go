// Package errlog records pipeline failures in an append-only CSV audit log.
//
// The log is never read back by the running process and does not
// deduplicate: the same failure can be recorded on every run.
package errlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
)

// Category is one of the closed set of failure kinds.
type Category string

const (
	CategoryMetadata              Category = "metadata_failure"
	CategoryISRCMap               Category = "isrc_map_failure"
	CategoryTrackNotFound         Category = "track_not_found"
	CategoryAlbumNotFound         Category = "album_not_found"
	CategoryDownload              Category = "download_failure"
	CategoryRename                Category = "rename_failure"
	CategoryPlaylistTrackNotFound Category = "playlist_track_not_found"
)

// Failure is a recordable failure. It implements error so it can travel
// through normal error returns until it is recorded.
type Failure struct {
	Category Category
	// Context is the originating link, or another identifying string
	// (an ISRC, a folder path) when no link is available.
	Context string
	Message string
}

// NewFailure builds a Failure.
func NewFailure(category Category, context, message string) *Failure {
	return &Failure{Category: category, Context: context, Message: message}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s: %s", f.Category, f.Context, f.Message)
}

// Recorder accepts failures.
type Recorder interface {
	Record(f *Failure) error
}

var header = []string{"type", "link", "error"}

// Log is a Recorder that appends rows to a CSV file.
//
// Each row is (category, link-or-context, message). A header row is written
// when the file is created. Log is safe for concurrent use.
type Log struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *csv.Writer
}

// Open opens (or creates) the error log at path.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "creating error log directory")
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening error log %s", path)
	}

	l := &Log{path: path, file: file, w: csv.NewWriter(file)}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "stat error log %s", path)
	}
	if info.Size() == 0 {
		if err := l.write(header); err != nil {
			file.Close()
			return nil, err
		}
	}
	return l, nil
}

// Record appends one failure row.
func (l *Log) Record(f *Failure) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.write([]string{string(f.Category), f.Context, f.Message})
}

func (l *Log) write(row []string) error {
	if err := l.w.Write(row); err != nil {
		return errors.Wrapf(err, "writing error log %s", l.path)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return errors.Wrapf(err, "flushing error log %s", l.path)
	}
	return nil
}

// Path returns the file backing the log.
func (l *Log) Path() string {
	return l.path
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Memory is a Recorder that keeps failures in memory.
type Memory struct {
	mu       sync.Mutex
	failures []*Failure
}

// Record stores f.
func (m *Memory) Record(f *Failure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, f)
	return nil
}

// Failures returns a copy of the recorded failures in recording order.
func (m *Memory) Failures() []*Failure {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Failure(nil), m.failures...)
}

// CountByCategory tallies recorded failures.
func (m *Memory) CountByCategory() map[Category]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[Category]int)
	for _, f := range m.failures {
		counts[f.Category]++
	}
	return counts
}

// Tee returns a Recorder writing to every recorder in order, stopping at
// the first error.
func Tee(recorders ...Recorder) Recorder {
	return teeRecorder(recorders)
}

type teeRecorder []Recorder

func (t teeRecorder) Record(f *Failure) error {
	for _, r := range t {
		if err := r.Record(f); err != nil {
			return err
		}
	}
	return nil
}
