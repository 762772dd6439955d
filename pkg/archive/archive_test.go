package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func fixedNow(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func sampleParams(t *testing.T, out string) Params {
	t.Helper()
	src := t.TempDir()
	ledger := filepath.Join(src, "bank.db")
	conf := filepath.Join(src, "game.yaml")
	writeFile(t, ledger, "ledger bytes")
	writeFile(t, conf, "port: 6250\n")
	checkpoints := 0
	t.Cleanup(func() {
		if checkpoints != 1 {
			t.Errorf("ledger checkpointed %d times", checkpoints)
		}
	})
	return Params{
		Dir:        out,
		ServerName: "Testrealm",
		Players:    3,
		Guilds:     1,
		WorldSnapshot: func(dest string) error {
			return os.WriteFile(dest, []byte("world bytes"), 0o644)
		},
		LedgerPath:       ledger,
		LedgerCheckpoint: func() error { checkpoints++; return nil },
		ConfPath:         conf,
		Now:              fixedNow(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
}

func TestCreateAndRestore(t *testing.T) {
	out := t.TempDir()
	path, err := Create(sampleParams(t, out))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if filepath.Base(path) != "reagentbank-20260301-120000.tar.gz" {
		t.Errorf("archive name = %s", filepath.Base(path))
	}

	m, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if m.ServerName != "Testrealm" || m.Players != 3 || m.Guilds != 1 {
		t.Errorf("manifest = %+v", m)
	}
	if m.Timestamp != "2026-03-01T12:00:00Z" {
		t.Errorf("timestamp = %s", m.Timestamp)
	}
	for _, name := range []string{MemberWorld, MemberLedger, "conf/game.yaml"} {
		if _, ok := m.Files[name]; !ok {
			t.Errorf("manifest lacks %s", name)
		}
	}

	dest := t.TempDir()
	conf := filepath.Join(dest, "game.yaml")
	writeFile(t, conf, "port: 7000\n")
	res, err := Restore(RestoreParams{
		Path:       path,
		WorldDest:  filepath.Join(dest, "data", "world.bolt"),
		LedgerDest: filepath.Join(dest, "data", "bank.db"),
		ConfDest:   conf,
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if len(res.Restored) != 2 {
		t.Errorf("restored = %v", res.Restored)
	}
	if got := readFile(t, filepath.Join(dest, "data", "world.bolt")); got != "world bytes" {
		t.Errorf("world = %q", got)
	}
	if got := readFile(t, filepath.Join(dest, "data", "bank.db")); got != "ledger bytes" {
		t.Errorf("ledger = %q", got)
	}
	if got := readFile(t, conf); got != "port: 7000\n" {
		t.Errorf("existing config overwritten: %q", got)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v", res.Warnings)
	}

	_, err = Restore(RestoreParams{Path: path, ConfDest: conf, OverwriteConf: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, conf); got != "port: 6250\n" {
		t.Errorf("config = %q after overwrite", got)
	}
}

func TestRestoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tar.gz")
	writeFile(t, path, "not gzip")
	if _, err := Restore(RestoreParams{Path: path}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := ReadManifest(path); err == nil {
		t.Fatal("expected error")
	}
}

func TestListAndPrune(t *testing.T) {
	out := t.TempDir()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		p := sampleParams(t, out)
		p.Now = fixedNow(base.Add(time.Duration(i) * time.Hour))
		if _, err := Create(p); err != nil {
			t.Fatal(err)
		}
	}

	all, err := List(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("List = %d archives", len(all))
	}
	if all[0].Timestamp != "2026-03-01T15:00:00Z" || all[3].Timestamp != "2026-03-01T12:00:00Z" {
		t.Errorf("order = %s .. %s", all[0].Timestamp, all[3].Timestamp)
	}

	removed, err := Prune(out, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 2 {
		t.Errorf("removed = %v", removed)
	}
	left, _ := List(out)
	if len(left) != 2 || left[1].Timestamp != "2026-03-01T14:00:00Z" {
		t.Errorf("left = %+v", left)
	}

	if removed, _ := Prune(out, 0); removed != nil {
		t.Errorf("retain 0 removed %v", removed)
	}
}
