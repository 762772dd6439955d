package archive

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// ErrNoManifest is returned for archives without a manifest.json member.
var ErrNoManifest = errors.New("archive: manifest.json not found")

// Info holds metadata about an existing archive file.
type Info struct {
	Path      string
	Size      int64
	Timestamp string // from the manifest, or the file mod time
	Players   int
	Guilds    int
}

// List returns the archives in dir, newest first.
func List(dir string) ([]Info, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.tar.gz"))
	if err != nil {
		return nil, fmt.Errorf("archive: glob %s: %w", dir, err)
	}

	var out []Info
	for _, path := range matches {
		st, err := os.Stat(path)
		if err != nil {
			continue
		}
		info := Info{Path: path, Size: st.Size(), Timestamp: st.ModTime().UTC().Format("2006-01-02T15:04:05Z")}
		if m, err := ReadManifest(path); err == nil {
			info.Timestamp = m.Timestamp
			info.Players = m.Players
			info.Guilds = m.Guilds
		}
		out = append(out, info)
	}

	// RFC 3339 UTC timestamps sort lexically.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].Path > out[j].Path
	})
	return out, nil
}

// Prune deletes all but the newest retain archives in dir and returns the
// removed paths.
func Prune(dir string, retain int) ([]string, error) {
	if retain < 1 {
		return nil, nil
	}
	all, err := List(dir)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, a := range all[min(retain, len(all)):] {
		if err := os.Remove(a.Path); err != nil {
			return removed, fmt.Errorf("archive: remove %s: %w", a.Path, err)
		}
		removed = append(removed, a.Path)
	}
	return removed, nil
}

// ReadManifest extracts the manifest of an archive without unpacking it.
func ReadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, ErrNoManifest
		}
		if err != nil {
			return nil, err
		}
		if hdr.Name != MemberManifest {
			continue
		}
		var m Manifest
		if err := json.NewDecoder(tr).Decode(&m); err != nil {
			return nil, fmt.Errorf("archive: parse manifest: %w", err)
		}
		return &m, nil
	}
}
