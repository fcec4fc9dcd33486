// Package persist writes record collections to disk, reads them back and
// checks that nothing was lost on the way.
package persist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"infobox_scraper/internal/record"
)

// Codec serializes a whole record collection.
type Codec interface {
	Name() string
	Encode(w io.Writer, records []*record.Record) error
	Decode(r io.Reader) ([]*record.Record, error)
}

func WriteFile(path string, codec Codec, records []*record.Record) error {
	return writeFile(path, func(w io.Writer) error {
		if err := codec.Encode(w, records); err != nil {
			return fmt.Errorf("encode %s as %s: %w", path, codec.Name(), err)
		}
		return nil
	})
}

// ExportFile writes records to path with export.
func ExportFile(path string, export Exporter, records []*record.Record) error {
	return writeFile(path, func(w io.Writer) error {
		if err := export(w, records); err != nil {
			return fmt.Errorf("export %s: %w", path, err)
		}
		return nil
	})
}

func writeFile(path string, write func(w io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		return err
	}
	return w.Flush()
}

func ReadFile(path string, codec Codec) ([]*record.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := codec.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("decode %s as %s: %w", path, codec.Name(), err)
	}
	return records, nil
}
