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
	"strings"
)

// RestoreParams names where each archive member goes. Empty destinations
// are skipped.
type RestoreParams struct {
	Path       string
	WorldDest  string
	LedgerDest string
	ConfDest   string
	// OverwriteConf replaces an existing config file; otherwise it is kept.
	OverwriteConf bool
}

// RestoreResult summarizes a completed restore.
type RestoreResult struct {
	Manifest *Manifest
	Restored []string // destination paths written
	Warnings []string
}

// Restore unpacks an archive, verifies every checksum in its manifest and
// only then copies the members to their destinations.
func Restore(p RestoreParams) (*RestoreResult, error) {
	staging, err := os.MkdirTemp("", "reagentbank-restore-*")
	if err != nil {
		return nil, fmt.Errorf("restore: staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := extract(p.Path, staging); err != nil {
		return nil, fmt.Errorf("restore: extract: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(staging, MemberManifest))
	if err != nil {
		return nil, fmt.Errorf("restore: %w", ErrNoManifest)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("restore: parse manifest: %w", err)
	}
	for name, entry := range m.Files {
		ok, err := checksum(filepath.Join(staging, filepath.FromSlash(name)), entry.SHA256)
		if err != nil {
			return nil, fmt.Errorf("restore: checksum %s: %w", name, err)
		}
		if !ok {
			return nil, fmt.Errorf("restore: checksum mismatch for %s", name)
		}
	}

	res := &RestoreResult{Manifest: &m}
	place := func(member, dest string) error {
		if dest == "" {
			return nil
		}
		if _, ok := m.Files[member]; !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s not in archive", member))
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("restore: create dir for %s: %w", dest, err)
		}
		if err := copyFile(filepath.Join(staging, filepath.FromSlash(member)), dest); err != nil {
			return fmt.Errorf("restore: copy %s: %w", member, err)
		}
		res.Restored = append(res.Restored, dest)
		return nil
	}

	if err := place(MemberWorld, p.WorldDest); err != nil {
		return nil, err
	}
	if err := place(MemberLedger, p.LedgerDest); err != nil {
		return nil, err
	}
	if p.ConfDest != "" {
		member := confPrefix + filepath.Base(p.ConfDest)
		if _, err := os.Stat(p.ConfDest); err == nil && !p.OverwriteConf {
			res.Warnings = append(res.Warnings, "kept current config "+p.ConfDest)
		} else if err := place(member, p.ConfDest); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// extract unpacks a .tar.gz into dir, rejecting entries that escape it.
func extract(path, dir string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gr.Close()

	root := filepath.Clean(dir) + string(os.PathSeparator)
	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target := filepath.Join(dir, filepath.FromSlash(hdr.Name))
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("invalid archive entry: %s", hdr.Name)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
	}
}

func checksum(path, want string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, err
	}
	return hex.EncodeToString(h.Sum(nil)) == want, nil
}
