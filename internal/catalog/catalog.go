// Package catalog reads and writes metadata documents on disk.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kokistudios/metamagic/internal/record"
)

var (
	// ErrDirectoryUnavailable means the metadata directory could not be opened.
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	// ErrFileUnavailable means a single file could not be opened, read or written.
	ErrFileUnavailable = errors.New("file unavailable")
)

// Error ties a failure kind to the path it happened on.
type Error struct {
	Kind error
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Path)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Skipped is a directory entry that could not be loaded.
type Skipped struct {
	Path string
	Err  error
}

// Result is the outcome of LoadAll.
type Result struct {
	Dir     string
	Records []record.Record
	Skipped []Skipped
}

// Total returns the number of entries examined.
func (r *Result) Total() int {
	return len(r.Records) + len(r.Skipped)
}

// LoadOne reads path fully and decodes it.
func LoadOne(path string) (record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return record.Record{}, &Error{Kind: ErrFileUnavailable, Path: path, Err: err}
	}
	r, err := record.Decode(data)
	if err != nil {
		return record.Record{}, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// LoadAll decodes every entry of dir. Entries that fail are collected in
// Result.Skipped and do not stop the scan; only an unreadable dir is fatal.
func LoadAll(dir string) (*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &Error{Kind: ErrDirectoryUnavailable, Path: dir, Err: err}
	}

	res := &Result{Dir: dir, Records: make([]record.Record, 0, len(entries))}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if !e.Type().IsRegular() && !isFileSymlink(p, e) {
			res.Skipped = append(res.Skipped, Skipped{
				Path: p,
				Err:  &Error{Kind: ErrFileUnavailable, Path: p, Err: errors.New("not a regular file")},
			})
			continue
		}
		r, err := LoadOne(p)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Path: p, Err: err})
			continue
		}
		res.Records = append(res.Records, r)
	}
	return res, nil
}

// isFileSymlink reports whether a symlink entry resolves to a regular file.
func isFileSymlink(path string, e os.DirEntry) bool {
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// WriteOne encodes r and writes it to path, creating or truncating the file.
func WriteOne(path string, r record.Record) error {
	data, err := record.Encode(r)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &Error{Kind: ErrFileUnavailable, Path: path, Err: err}
	}
	return nil
}
