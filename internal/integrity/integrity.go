// Package integrity implements multi-algorithm content digests used to
// verify fetched sources against manifest-declared hashes and to fingerprint
// installed artifacts. Hashing is streamed over files and directories rather
// than buffered in memory, generalized from a single SHA-256 digest to the
// SHA-256/SHA-512 pair this package computes side by side.
package integrity

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Algorithm names recognized by Integrity.
const (
	SHA256 = "sha256"
	SHA512 = "sha512"
)

var allAlgorithms = []string{SHA256, SHA512}

func newHasher(algo string) (hash.Hash, error) {
	switch algo {
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unknown integrity algorithm %q", algo)
	}
}

// Integrity is a set of hex-encoded digests, one per algorithm, all computed
// over the same content.
type Integrity struct {
	Digests map[string]string
}

// Matches reports whether i and other share at least one algorithm whose
// digests are equal. Two Integrity values with no algorithm in common never
// match, even if both are otherwise non-empty.
func (i Integrity) Matches(other Integrity) bool {
	for algo, digest := range i.Digests {
		if od, ok := other.Digests[algo]; ok && od == digest {
			return true
		}
	}
	return false
}

// IsEmpty reports whether i carries no digests.
func (i Integrity) IsEmpty() bool { return len(i.Digests) == 0 }

// String renders i as a comma-separated, algorithm-sorted "algo-hex" list.
func (i Integrity) String() string {
	algos := make([]string, 0, len(i.Digests))
	for a := range i.Digests {
		algos = append(algos, a)
	}
	sort.Strings(algos)
	parts := make([]string, len(algos))
	for idx, a := range algos {
		parts[idx] = a + "-" + i.Digests[a]
	}
	return strings.Join(parts, ",")
}

// Parse parses the canonical "algo-hex,algo-hex" form produced by String.
func Parse(s string) (Integrity, error) {
	result := Integrity{Digests: map[string]string{}}
	s = strings.TrimSpace(s)
	if s == "" {
		return result, nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		idx := strings.IndexByte(part, '-')
		if idx < 0 {
			return Integrity{}, fmt.Errorf("malformed integrity entry %q", part)
		}
		algo, digest := part[:idx], part[idx+1:]
		if _, err := newHasher(algo); err != nil {
			return Integrity{}, err
		}
		result.Digests[algo] = digest
	}
	return result, nil
}

// HashBytes computes an Integrity over data for each named algorithm
// (defaulting to SHA-256 and SHA-512 when none are given).
func HashBytes(data []byte, algos ...string) (Integrity, error) {
	if len(algos) == 0 {
		algos = allAlgorithms
	}
	result := Integrity{Digests: map[string]string{}}
	for _, algo := range algos {
		h, err := newHasher(algo)
		if err != nil {
			return Integrity{}, err
		}
		h.Write(data)
		result.Digests[algo] = hex.EncodeToString(h.Sum(nil))
	}
	return result, nil
}

// HashFile streams path through each named algorithm's hasher in a single
// pass, without buffering the whole file in memory.
func HashFile(path string, algos ...string) (Integrity, error) {
	if len(algos) == 0 {
		algos = allAlgorithms
	}
	f, err := os.Open(path)
	if err != nil {
		return Integrity{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	hashers := make(map[string]hash.Hash, len(algos))
	writers := make([]io.Writer, 0, len(algos))
	for _, algo := range algos {
		h, err := newHasher(algo)
		if err != nil {
			return Integrity{}, err
		}
		hashers[algo] = h
		writers = append(writers, h)
	}

	if _, err := io.Copy(io.MultiWriter(writers...), f); err != nil {
		return Integrity{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	result := Integrity{Digests: map[string]string{}}
	for algo, h := range hashers {
		result.Digests[algo] = hex.EncodeToString(h.Sum(nil))
	}
	return result, nil
}

// HashDirectory fingerprints a directory tree by feeding each regular file's
// relative path and content into the hashers in deterministic (lexical)
// path order. Symlinks are skipped; only real file content is checksummed.
func HashDirectory(dir string, algos ...string) (Integrity, error) {
	if len(algos) == 0 {
		algos = allAlgorithms
	}

	var relPaths []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		linfo, err := os.Lstat(path)
		if err != nil {
			return fmt.Errorf("failed to lstat %s: %w", path, err)
		}
		if linfo.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		relPaths = append(relPaths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return Integrity{}, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Strings(relPaths)

	hashers := make(map[string]hash.Hash, len(algos))
	writers := make([]io.Writer, 0, len(algos))
	for _, algo := range algos {
		h, err := newHasher(algo)
		if err != nil {
			return Integrity{}, err
		}
		hashers[algo] = h
		writers = append(writers, h)
	}
	combined := io.MultiWriter(writers...)

	for _, rel := range relPaths {
		fmt.Fprintf(combined, "%s\x00", rel)
		f, err := os.Open(filepath.Join(dir, rel))
		if err != nil {
			return Integrity{}, fmt.Errorf("failed to open %s: %w", rel, err)
		}
		_, copyErr := io.Copy(combined, f)
		f.Close()
		if copyErr != nil {
			return Integrity{}, fmt.Errorf("failed to read %s: %w", rel, copyErr)
		}
	}

	result := Integrity{Digests: map[string]string{}}
	for algo, h := range hashers {
		result.Digests[algo] = hex.EncodeToString(h.Sum(nil))
	}
	return result, nil
}
