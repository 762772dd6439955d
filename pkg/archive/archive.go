// Package archive writes and restores .tar.gz snapshots of the world store,
// the guild ledger and the files they were loaded with.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Archive member names.
const (
	MemberWorld    = "data/world.bolt"
	MemberLedger   = "data/ledger.db"
	MemberCatalog  = "data/items.yaml"
	MemberManifest = "manifest.json"
	confPrefix     = "conf/"
)

// Manifest describes the contents of an archive.
type Manifest struct {
	Version    int                  `json:"version"`
	Server     string               `json:"server"`
	Timestamp  string               `json:"timestamp"`
	ServerName string               `json:"server_name"`
	Players    int                  `json:"players"`
	Guilds     int                  `json:"guilds"`
	Files      map[string]FileEntry `json:"files"`
}

// FileEntry describes a single file within the archive.
type FileEntry struct {
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
	Kind   string `json:"kind"` // world, ledger, catalog, conf
}

// Params holds the inputs of Create. Empty paths and nil funcs are skipped.
type Params struct {
	Dir        string // output directory
	ServerName string
	Players    int
	Guilds     int

	WorldSnapshot    func(dest string) error // hot copy of the bolt store
	LedgerPath       string
	LedgerCheckpoint func() error // flush the WAL before copying
	CatalogPath      string
	ConfPath         string

	Now func() time.Time // nil = time.Now
}

// Create writes a new archive into p.Dir and returns its path.
func Create(p Params) (string, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	ts := now()

	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return "", fmt.Errorf("archive: create dir %s: %w", p.Dir, err)
	}
	path := filepath.Join(p.Dir, fmt.Sprintf("reagentbank-%s.tar.gz", ts.Format("20060102-150405")))

	staging, err := os.MkdirTemp("", "reagentbank-archive-*")
	if err != nil {
		return "", fmt.Errorf("archive: staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	type member struct{ src, name, kind string }
	var members []member

	if p.WorldSnapshot != nil {
		dst := filepath.Join(staging, "world.bolt")
		if err := p.WorldSnapshot(dst); err != nil {
			return "", fmt.Errorf("archive: world snapshot: %w", err)
		}
		members = append(members, member{dst, MemberWorld, "world"})
	}
	if p.LedgerPath != "" {
		if p.LedgerCheckpoint != nil {
			if err := p.LedgerCheckpoint(); err != nil {
				return "", fmt.Errorf("archive: ledger checkpoint: %w", err)
			}
		}
		dst := filepath.Join(staging, "ledger.db")
		if err := copyFile(p.LedgerPath, dst); err != nil {
			return "", fmt.Errorf("archive: copy ledger: %w", err)
		}
		members = append(members, member{dst, MemberLedger, "ledger"})
	}
	if p.CatalogPath != "" {
		members = append(members, member{p.CatalogPath, MemberCatalog, "catalog"})
	}
	if p.ConfPath != "" {
		if _, err := os.Stat(p.ConfPath); err == nil {
			members = append(members, member{p.ConfPath, confPrefix + filepath.Base(p.ConfPath), "conf"})
		}
	}

	manifest := Manifest{
		Version:    1,
		Server:     "ReagentBank",
		Timestamp:  ts.UTC().Format(time.RFC3339),
		ServerName: p.ServerName,
		Players:    p.Players,
		Guilds:     p.Guilds,
		Files:      make(map[string]FileEntry, len(members)),
	}

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("archive: create %s: %w", path, err)
	}
	gw := gzip.NewWriter(out)
	tw := tar.NewWriter(gw)

	write := func() error {
		for _, m := range members {
			entry, err := addFile(tw, m.src, m.name)
			if err != nil {
				return err
			}
			entry.Kind = m.kind
			manifest.Files[m.name] = entry
		}
		// The manifest goes last so it can carry every checksum.
		data, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			return fmt.Errorf("archive: marshal manifest: %w", err)
		}
		if err := tw.WriteHeader(&tar.Header{Name: MemberManifest, Size: int64(len(data)), Mode: 0o644, ModTime: ts}); err != nil {
			return fmt.Errorf("archive: manifest header: %w", err)
		}
		if _, err := tw.Write(data); err != nil {
			return fmt.Errorf("archive: write manifest: %w", err)
		}
		if err := tw.Close(); err != nil {
			return err
		}
		if err := gw.Close(); err != nil {
			return err
		}
		return out.Close()
	}
	if err := write(); err != nil {
		out.Close()
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// addFile copies srcPath into the tar stream as name and returns its checksum.
func addFile(tw *tar.Writer, srcPath, name string) (FileEntry, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return FileEntry{}, fmt.Errorf("archive: open %s: %w", srcPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return FileEntry{}, fmt.Errorf("archive: stat %s: %w", srcPath, err)
	}
	if err := tw.WriteHeader(&tar.Header{Name: name, Size: info.Size(), Mode: 0o644, ModTime: info.ModTime()}); err != nil {
		return FileEntry{}, fmt.Errorf("archive: header %s: %w", name, err)
	}

	h := sha256.New()
	n, err := io.Copy(tw, io.TeeReader(f, h))
	if err != nil {
		return FileEntry{}, fmt.Errorf("archive: write %s: %w", name, err)
	}
	return FileEntry{SHA256: hex.EncodeToString(h.Sum(nil)), Size: n}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
