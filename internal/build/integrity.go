package build

import "github.com/lux-pm/lux/internal/integrity"

// rockspecIntegrity hashes the exact bytes the resolver downloaded, so the
// committed LocalPackage's rockspec hash matches what a later sync can
// re-verify against.
func rockspecIntegrity(rockspec []byte) (integrity.Integrity, error) {
	return integrity.HashBytes(rockspec)
}
