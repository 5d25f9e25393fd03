package lockfile

import (
	"github.com/lux-pm/lux/internal/errs"
	"github.com/lux-pm/lux/internal/manifest"
)

// Add inserts or replaces pkg, keyed by its own Id.
func (l *LocalPackageLock) Add(pkg LocalPackage) LocalPackageId {
	id := pkg.Id()
	if _, exists := l.Rocks[id]; !exists {
		l.order = append(l.order, id)
	}
	l.Rocks[id] = pkg
	return id
}

// AddDependency records that parent depends on child, appending child to
// parent's dependency edge list if not already present. Both ids must
// already exist in the lock; AddDependency does not itself add entries.
func (l *LocalPackageLock) AddDependency(parent, child LocalPackageId) error {
	p, ok := l.Rocks[parent]
	if !ok {
		return &errs.ManifestValidationError{Field: "lockfile", Message: "add_dependency: parent id not present"}
	}
	for _, existing := range p.Spec.Deps {
		if existing == child {
			return nil
		}
	}
	p.Spec.Deps = append(p.Spec.Deps, child)
	l.Rocks[parent] = p
	return nil
}

// Remove deletes pkg's entry (by its current Id).
func (l *LocalPackageLock) Remove(pkg LocalPackage) {
	l.RemoveByID(pkg.Id())
}

// RemoveByID deletes the entry with the given id, if present, and strips it
// from every other rock's dependency list.
func (l *LocalPackageLock) RemoveByID(id LocalPackageId) {
	if _, ok := l.Rocks[id]; !ok {
		return
	}
	delete(l.Rocks, id)
	for i, existing := range l.order {
		if existing == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	for otherID, other := range l.Rocks {
		filtered := other.Spec.Deps[:0]
		for _, dep := range other.Spec.Deps {
			if dep != id {
				filtered = append(filtered, dep)
			}
		}
		other.Spec.Deps = filtered
		l.Rocks[otherID] = other
	}
}

// PackageSyncSpec diffs requirements against the currently installed set.
//
//  1. entrypoints_to_keep = current entrypoints whose constraint matches
//     some requirement's version-req.
//  2. packages_to_keep = transitive closure of entrypoints_to_keep via deps.
//  3. to_add = requirements not matched by any installed rock with an
//     equal constraint string.
//  4. to_remove = all installed rocks not in packages_to_keep.
func (l *LocalPackageLock) PackageSyncSpec(requirements []manifest.PackageReq) SyncSpec {
	reqByName := map[manifest.PackageName]manifest.PackageReq{}
	for _, r := range requirements {
		reqByName[r.Name] = r
	}

	keep := map[LocalPackageId]bool{}
	var frontier []LocalPackageId
	for _, epID := range l.Entrypoints {
		ep, ok := l.Rocks[epID]
		if !ok {
			continue
		}
		req, wanted := reqByName[ep.Spec.Name]
		if !wanted || !req.Req.Matches(ep.Spec.Version) {
			continue
		}
		keep[epID] = true
		frontier = append(frontier, epID)
	}
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		pkg, ok := l.Rocks[id]
		if !ok {
			continue
		}
		for _, dep := range pkg.Spec.Deps {
			if !keep[dep] {
				keep[dep] = true
				frontier = append(frontier, dep)
			}
		}
	}

	var toAdd []manifest.PackageReq
	for _, r := range requirements {
		if _, ok := l.HasRockWithEqualConstraint(r.Name, r.Req.String()); !ok {
			toAdd = append(toAdd, r)
		}
	}

	var toRemove []LocalPackageId
	for _, id := range l.order {
		if !keep[id] {
			toRemove = append(toRemove, id)
		}
	}

	return SyncSpec{ToAdd: toAdd, ToRemove: toRemove}
}

// ValidateIntegrity compares pkg's rockspec and source integrity against
// the entry already recorded for the same (name, version), if any.
func (l *LocalPackageLock) ValidateIntegrity(pkg LocalPackage) error {
	for _, id := range l.order {
		existing, ok := l.Rocks[id]
		if !ok || existing.Spec.Name != pkg.Spec.Name || existing.Spec.Version.Cmp(pkg.Spec.Version) != 0 {
			continue
		}
		rockspecOK := existing.Hashes.Rockspec.IsEmpty() || existing.Hashes.Rockspec.Matches(pkg.Hashes.Rockspec)
		sourceOK := existing.Hashes.Source.IsEmpty() || existing.Hashes.Source.Matches(pkg.Hashes.Source)
		if !rockspecOK || !sourceOK {
			return &errs.LockfileIntegrityMismatchError{
				Name:             string(pkg.Spec.Name),
				Version:          pkg.Spec.Version.String(),
				RockspecMismatch: !rockspecOK,
				SourceMismatch:   !sourceOK,
			}
		}
	}
	return nil
}

// Sync merges other's entries into l, keyed by id (other's entries win on
// collision), and recomputes entrypoints.
func (l *LocalPackageLock) Sync(other *LocalPackageLock) {
	for _, id := range other.order {
		pkg, ok := other.Rocks[id]
		if !ok {
			continue
		}
		l.Add(pkg)
	}
	l.recomputeEntrypoints()
}

// recomputeEntrypoints sets Entrypoints to exactly those ids not appearing
// in any rock's deps list. Order matches insertion order for determinism.
func (l *LocalPackageLock) recomputeEntrypoints() {
	referenced := map[LocalPackageId]bool{}
	for _, pkg := range l.Rocks {
		for _, dep := range pkg.Spec.Deps {
			referenced[dep] = true
		}
	}
	var entrypoints []LocalPackageId
	for _, id := range l.order {
		if !referenced[id] {
			entrypoints = append(entrypoints, id)
		}
	}
	l.Entrypoints = entrypoints
}
