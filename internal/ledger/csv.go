package ledger

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

const csvHeader = "link"

// CSVStore keeps one link per line in a CSV file with a "link" header row.
type CSVStore struct {
	mu   sync.Mutex
	path string
}

// NewCSVStore returns a store backed by path. The file is created on the
// first Append.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Load reads all entries. A missing file is an empty ledger. The header row,
// when present, is skipped; every other non-empty line is one link.
func (s *CSVStore) Load(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "opening %s", s.path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var links []string
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", s.path)
		}
		if len(record) == 0 {
			continue
		}
		link := strings.TrimSpace(record[0])
		if first {
			first = false
			if link == csvHeader {
				continue
			}
		}
		if link != "" {
			links = append(links, link)
		}
	}
	return links, nil
}

// Append adds one link, writing the header first if the file is new.
func (s *CSVStore) Append(ctx context.Context, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "creating ledger directory")
		}
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "opening %s", s.path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat %s", s.path)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write([]string{csvHeader}); err != nil {
			return errors.Wrapf(err, "writing %s", s.path)
		}
	}
	if err := w.Write([]string{link}); err != nil {
		return errors.Wrapf(err, "writing %s", s.path)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrapf(err, "writing %s", s.path)
	}
	return f.Sync()
}

// Close is a no-op; the file is opened per operation.
func (s *CSVStore) Close() error {
	return nil
}
