// Package bundle exports metadata records to portable .mmb archives and imports them back.
package bundle

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/kokistudios/metamagic/internal/catalog"
	"github.com/kokistudios/metamagic/internal/record"
)

// Extension is the suffix given to bundle files.
const Extension = ".mmb"

const manifestName = "manifest.yaml"

// Manifest describes the contents of a bundle.
type Manifest struct {
	Version    string    `yaml:"version"`
	ID         string    `yaml:"id"`
	ExportedAt time.Time `yaml:"exported_at"`
	Source     string    `yaml:"source,omitempty"`
	Device     string    `yaml:"device,omitempty"`
	Count      int       `yaml:"count"`
	Files      []string  `yaml:"files"`
}

// ExportOptions annotate the manifest of an exported bundle.
type ExportOptions struct {
	Source string // directory the records were loaded from
	Device string // device filter applied, if any
	Now    func() time.Time
}

// Export writes records to a gzip-compressed tar bundle at outputPath and
// returns the path actually written. Records are stored in collection order.
func Export(records []record.Record, outputPath string, opts ExportOptions) (string, *Manifest, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	exportedAt := now().UTC()

	if outputPath == "" {
		outputPath = defaultName(exportedAt)
	}
	// If outputPath is a directory, append the default filename
	if info, err := os.Stat(outputPath); err == nil && info.IsDir() {
		outputPath = filepath.Join(outputPath, defaultName(exportedAt))
	} else if !strings.HasSuffix(outputPath, Extension) {
		outputPath += Extension
	}

	manifest := &Manifest{
		Version:    "1",
		ID:         uuid.New().String(),
		ExportedAt: exportedAt,
		Source:     opts.Source,
		Device:     opts.Device,
		Count:      len(records),
		Files:      make([]string, 0, len(records)),
	}

	err := writeFile(outputPath, func(w io.Writer) error {
		return writeArchive(w, records, manifest, exportedAt)
	})
	if err != nil {
		return "", nil, err
	}
	return outputPath, manifest, nil
}

func writeArchive(w io.Writer, records []record.Record, manifest *Manifest, exportedAt time.Time) error {
	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)

	for i, r := range records {
		data, err := record.Encode(r)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("records/%06d.json", i)
		if err := writeEntry(tw, name, data, exportedAt); err != nil {
			return err
		}
		manifest.Files = append(manifest.Files, name)
	}

	manifestData, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := writeEntry(tw, manifestName, manifestData, exportedAt); err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finish tar: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip: %w", err)
	}
	return nil
}

// writeFile streams fill into a temporary file next to path and renames it
// into place. On failure nothing is left behind and an existing path is kept.
func writeFile(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := fill(tmp); err != nil {
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move output file into place: %w", err)
	}
	return nil
}

func defaultName(t time.Time) string {
	return "metadata-" + t.Format("20060102-150405") + Extension
}

func writeEntry(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	header := &tar.Header{
		Name:    name,
		Size:    int64(len(data)),
		Mode:    0644,
		ModTime: modTime,
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write tar content for %s: %w", name, err)
	}
	return nil
}

// ImportResult contains information about an imported bundle.
type ImportResult struct {
	Manifest *Manifest
	Written  []string // paths created in the target directory
	Existing []string // paths left untouched because they already existed
}

// Import decodes every record of the bundle and writes each to dir as
// <device_id>_<capture_start>.json. Later records with the same name in the
// bundle are written as <device_id>_<capture_start>-<n>.json. A malformed
// record aborts the import before anything is written.
func Import(bundlePath, dir string) (*ImportResult, error) {
	manifest, contents, err := readBundle(bundlePath)
	if err != nil {
		return nil, err
	}

	records := make([]record.Record, 0, len(manifest.Files))
	for _, name := range manifest.Files {
		data, ok := contents[name]
		if !ok {
			return nil, fmt.Errorf("invalid bundle: manifest lists missing file %s", name)
		}
		r, err := record.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("invalid bundle entry %s: %w", name, err)
		}
		records = append(records, r)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	result := &ImportResult{Manifest: manifest}
	seen := make(map[string]int, len(records))
	for _, r := range records {
		name := FileName(r)
		// records sharing device and capture start get -1, -2, ... suffixes
		if n := seen[name]; n > 0 {
			seen[name]++
			name = fmt.Sprintf("%s-%d.json", strings.TrimSuffix(name, ".json"), n)
		} else {
			seen[name] = 1
		}
		dest := filepath.Join(dir, name)
		if _, err := os.Stat(dest); err == nil {
			result.Existing = append(result.Existing, dest)
			continue
		}
		if err := catalog.WriteOne(dest, r); err != nil {
			return result, err
		}
		result.Written = append(result.Written, dest)
	}
	return result, nil
}

// FileName is the name Import gives a record's document.
func FileName(r record.Record) string {
	device := strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			return c
		default:
			return '_'
		}
	}, r.DeviceID)
	if device == "" {
		device = "unknown"
	}
	return fmt.Sprintf("%s_%d.json", device, r.CaptureStart)
}

// ReadManifest reads only the manifest from a bundle without extracting records.
func ReadManifest(bundlePath string) (*Manifest, error) {
	manifest, _, err := readBundle(bundlePath)
	return manifest, err
}

func readBundle(bundlePath string) (*Manifest, map[string][]byte, error) {
	inFile, err := os.Open(bundlePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open bundle: %w", err)
	}
	defer inFile.Close()

	gr, err := gzip.NewReader(inFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read gzip: %w", err)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)

	var manifest *Manifest
	contents := make(map[string][]byte)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read tar: %w", err)
		}
		if !safeName(header.Name) {
			return nil, nil, fmt.Errorf("invalid bundle: unsafe entry name %q", header.Name)
		}

		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read file %s: %w", header.Name, err)
		}

		if header.Name == manifestName {
			manifest = &Manifest{}
			if err := yaml.Unmarshal(content, manifest); err != nil {
				return nil, nil, fmt.Errorf("failed to parse manifest: %w", err)
			}
		} else {
			contents[header.Name] = content
		}
	}

	if manifest == nil || manifest.Version == "" {
		return nil, nil, fmt.Errorf("invalid bundle: missing or empty manifest")
	}
	return manifest, contents, nil
}

func safeName(name string) bool {
	if name == "" || path.IsAbs(name) || strings.Contains(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
