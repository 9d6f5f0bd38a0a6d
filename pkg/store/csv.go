package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/corralhq/corral/pkg/errors"
	"github.com/corralhq/corral/pkg/records"
)

// CSV persists each corpus as a single CSV file under a base directory:
// <base>/<corpusID>/<corpusID>.csv, with backups alongside it. Writes go to
// a temp file in the same directory followed by a rename, so a failed write
// leaves the prior corpus intact.
type CSV struct {
	base   string
	schema *records.Schema
}

// NewCSV creates a CSV store rooted at base.
func NewCSV(base string, schema *records.Schema) *CSV {
	if schema == nil {
		schema = records.Default()
	}
	return &CSV{base: base, schema: schema}
}

// Path returns the corpus file path for a corpus ID.
func (s *CSV) Path(corpusID string) string {
	return filepath.Join(s.base, corpusID, corpusID+".csv")
}

// Load reads the entire corpus. A missing corpus is an ErrNotFound.
func (s *CSV) Load(corpusID string) ([]*records.Record, error) {
	path := s.Path(corpusID)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("corpus", corpusID)
		}
		return nil, errors.WrapIO("read", path, err)
	}
	defer f.Close()

	return readAll(f, path)
}

// Save replaces the entire corpus atomically. Column order is the schema
// order followed by any extra fields in first-seen order across the set.
func (s *CSV) Save(recs []*records.Record, corpusID string) error {
	path := s.Path(corpusID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapIO("write", path, err)
	}

	header := s.columns(recs)

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return errors.WrapIO("write", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return errors.WrapIO("write", path, err)
	}
	row := make([]string, len(header))
	for _, rec := range recs {
		for i, col := range header {
			row[i] = rec.Get(col)
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return errors.WrapIO("write", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return errors.WrapIO("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO("write", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// Backup copies the corpus file to a timestamped sibling and returns its path.
func (s *CSV) Backup(corpusID, suffix string) (string, error) {
	src := s.Path(corpusID)
	stamp := time.Now().Format("20060102-150405")
	dst := filepath.Join(filepath.Dir(src),
		fmt.Sprintf("%s.%s.%s.bak", filepath.Base(src), suffix, stamp))

	if err := copyFile(src, dst); err != nil {
		return "", errors.WrapIO("backup", src, err)
	}
	return dst, nil
}

// Restore replaces the corpus with a previously taken backup.
func (s *CSV) Restore(handle, corpusID string) error {
	dst := s.Path(corpusID)
	if err := copyFile(handle, dst); err != nil {
		return errors.WrapIO("restore", dst, err)
	}
	return nil
}

// DiscardBackup removes a backup file.
func (s *CSV) DiscardBackup(handle string) error {
	if err := os.Remove(handle); err != nil && !os.IsNotExist(err) {
		return errors.WrapIO("delete", handle, err)
	}
	return nil
}

// columns computes the output header: schema order first, then extra fields
// in first-seen order across the record set.
func (s *CSV) columns(recs []*records.Record) []string {
	header := s.schema.Fields()
	seen := make(map[string]bool, len(header))
	for _, f := range header {
		seen[f] = true
	}
	for _, rec := range recs {
		for _, f := range rec.Fields() {
			if !seen[f] {
				header = append(header, f)
				seen[f] = true
			}
		}
	}
	return header
}

func readAll(r io.Reader, path string) ([]*records.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tolerate ragged rows

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapParse("csv", path, err)
	}

	var recs []*records.Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapParse("csv", path, err)
		}
		rec := records.New()
		for i, col := range header {
			if i < len(row) {
				rec.Set(col, row[i])
			} else {
				rec.Set(col, "")
			}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}
