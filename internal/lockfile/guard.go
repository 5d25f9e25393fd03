package lockfile

import (
	"fmt"
	"os"
	"sync"
)

// Lockfile is the process-wide install-tree lockfile: a single
// LocalPackageLock bucket backed by one JSON file. It is created lazily —
// opening a path that doesn't exist yet materializes a minimal valid
// in-memory document, written to disk on the first guard flush.
type Lockfile struct {
	path string
	mu   sync.RWMutex
	data *LocalPackageLock
}

// OpenLockfile loads path if present, or starts a fresh empty document.
func OpenLockfile(path string) (*Lockfile, error) {
	lf := &Lockfile{path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		lf.data = newLocalPackageLock()
		return lf, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read lockfile: %w", err)
	}
	lock, err := unmarshalLock(data)
	if err != nil {
		return nil, fmt.Errorf("parse lockfile %s: %w", path, err)
	}
	lf.data = lock
	return lf, nil
}

// Snapshot returns a read-only view of the current in-memory state.
// Callers needing a consistent multi-operation read should take a Guard.
func (lf *Lockfile) Snapshot() *LocalPackageLock {
	lf.mu.RLock()
	defer lf.mu.RUnlock()
	return lf.data
}

// Guard is a scoped, exclusive write acquisition. It holds both the
// in-process mutex and an OS-level advisory lock on a sidecar file, so two
// guards on the same path within one process only overlap if the outer one
// has released; cross-process coordination is handled the same way but is
// not itself guaranteed atomic with in-process state (out of scope per the
// single-process concurrency model this shares with the rest of lux).
type Guard struct {
	lf    *Lockfile
	flock *fileLock
}

// Lock acquires the write guard, blocking until available.
func (lf *Lockfile) Lock() (*Guard, error) {
	lf.mu.Lock()
	fl, err := newFileLock(lf.path + ".lock")
	if err != nil {
		lf.mu.Unlock()
		return nil, err
	}
	if err := fl.lockExclusive(); err != nil {
		lf.mu.Unlock()
		return nil, err
	}
	return &Guard{lf: lf, flock: fl}, nil
}

// Data returns the mutable LocalPackageLock this guard protects.
func (g *Guard) Data() *LocalPackageLock { return g.lf.data }

// Flush recomputes entrypoints, serializes to pretty JSON, and atomically
// rewrites the backing file. Error paths still flush so partial progress
// before a later failure is not lost.
func (g *Guard) Flush() error {
	g.lf.data.recomputeEntrypoints()
	data, err := marshalPretty(g.lf.data)
	if err != nil {
		return fmt.Errorf("marshal lockfile: %w", err)
	}
	return atomicWrite(g.lf.path, data)
}

// Close flushes and releases both the file lock and the in-process mutex.
func (g *Guard) Close() error {
	flushErr := g.Flush()
	lockErr := g.flock.unlock()
	g.lf.mu.Unlock()
	if flushErr != nil {
		return flushErr
	}
	return lockErr
}

// ProjectLockfile partitions installed rocks into three independent
// LocalPackageLock buckets, each obeying the invariants of Lockfile
// independently: dependencies, test_dependencies, build_dependencies.
type ProjectLockfile struct {
	path string
	mu   sync.RWMutex

	Dependencies      *LocalPackageLock
	TestDependencies  *LocalPackageLock
	BuildDependencies *LocalPackageLock
}

// OpenProjectLockfile loads path if present, or starts three fresh empty
// buckets.
func OpenProjectLockfile(path string) (*ProjectLockfile, error) {
	pl := &ProjectLockfile{path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		pl.Dependencies = newLocalPackageLock()
		pl.TestDependencies = newLocalPackageLock()
		pl.BuildDependencies = newLocalPackageLock()
		return pl, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read project lockfile: %w", err)
	}
	parsed, err := unmarshalProject(data)
	if err != nil {
		return nil, fmt.Errorf("parse project lockfile %s: %w", path, err)
	}
	pl.Dependencies = parsed.Dependencies
	pl.TestDependencies = parsed.TestDependencies
	pl.BuildDependencies = parsed.BuildDependencies
	return pl, nil
}

// ProjectGuard is the ProjectLockfile analogue of Guard, flushing all three
// buckets into one lux.lock document on Close.
type ProjectGuard struct {
	pl    *ProjectLockfile
	flock *fileLock
}

// Lock acquires the write guard over all three buckets at once.
func (pl *ProjectLockfile) Lock() (*ProjectGuard, error) {
	pl.mu.Lock()
	fl, err := newFileLock(pl.path + ".lock")
	if err != nil {
		pl.mu.Unlock()
		return nil, err
	}
	if err := fl.lockExclusive(); err != nil {
		pl.mu.Unlock()
		return nil, err
	}
	return &ProjectGuard{pl: pl, flock: fl}, nil
}

func (g *ProjectGuard) Flush() error {
	g.pl.Dependencies.recomputeEntrypoints()
	g.pl.TestDependencies.recomputeEntrypoints()
	g.pl.BuildDependencies.recomputeEntrypoints()
	data, err := marshalProjectPretty(g.pl)
	if err != nil {
		return fmt.Errorf("marshal project lockfile: %w", err)
	}
	return atomicWrite(g.pl.path, data)
}

func (g *ProjectGuard) Close() error {
	flushErr := g.Flush()
	lockErr := g.flock.unlock()
	g.pl.mu.Unlock()
	if flushErr != nil {
		return flushErr
	}
	return lockErr
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp lockfile: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename lockfile: %w", err)
	}
	return nil
}
