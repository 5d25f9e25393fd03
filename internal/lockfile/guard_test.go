package lockfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGuardFlushCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lux.lock")
	lf, err := OpenLockfile(path)
	if err != nil {
		t.Fatal(err)
	}
	g, err := lf.Lock()
	if err != nil {
		t.Fatal(err)
	}
	g.Data().Add(newPkg(t, "neorg", "1.0.0-1", ""))
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected lockfile to exist after flush: %v", err)
	}
}

func TestGuardFlushIdempotence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lux.lock")
	lf, err := OpenLockfile(path)
	if err != nil {
		t.Fatal(err)
	}
	g, err := lf.Lock()
	if err != nil {
		t.Fatal(err)
	}
	g.Data().Add(newPkg(t, "neorg", "1.0.0-1", ""))
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	lf2, err := OpenLockfile(path)
	if err != nil {
		t.Fatal(err)
	}
	g2, err := lf2.Lock()
	if err != nil {
		t.Fatal(err)
	}
	if err := g2.Close(); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != string(second) {
		t.Errorf("expected flushing an unchanged lockfile to leave it bytewise identical\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestOpenLockfileMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.lock")
	lf, err := OpenLockfile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(lf.Snapshot().Rocks) != 0 {
		t.Error("expected a fresh lockfile to start with no rocks")
	}
}

func TestProjectLockfileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lux.lock")
	pl, err := OpenProjectLockfile(path)
	if err != nil {
		t.Fatal(err)
	}
	g, err := pl.Lock()
	if err != nil {
		t.Fatal(err)
	}
	g.pl.Dependencies.Add(newPkg(t, "neorg", "1.0.0-1", ""))
	g.pl.TestDependencies.Add(newPkg(t, "busted", "2.0.0-1", ""))
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}

	reloaded, err := OpenProjectLockfile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Dependencies.Rocks) != 1 {
		t.Errorf("expected 1 dependency rock after reload, got %d", len(reloaded.Dependencies.Rocks))
	}
	if len(reloaded.TestDependencies.Rocks) != 1 {
		t.Errorf("expected 1 test dependency rock after reload, got %d", len(reloaded.TestDependencies.Rocks))
	}
	if len(reloaded.Dependencies.Entrypoints) != 1 {
		t.Errorf("expected the lone rock to be its own bucket's entrypoint, got %+v", reloaded.Dependencies.Entrypoints)
	}
}
