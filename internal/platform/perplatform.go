package platform

// Override is the capability implemented by configurable types that support
// partial, field-by-field overriding. ApplyOverride merges an override value
// onto the receiver (the base) and returns the merged result.
type Override[T any] interface {
	ApplyOverride(override T) (T, error)
}

// PerPlatform holds a default value plus per-platform overrides.
type PerPlatform[T any] struct {
	Default     T
	PerPlatform map[string]T // keyed by Identifier.String()
}

// NewPerPlatform creates a PerPlatform with the given default and no
// per-platform overrides.
func NewPerPlatform[T any](def T) PerPlatform[T] {
	return PerPlatform[T]{Default: def, PerPlatform: map[string]T{}}
}

// Get looks up the value for identifier id: an exact per_platform entry
// wins; otherwise the nearest-ancestor subset's entry (most-specific
// first); otherwise Default.
func (p PerPlatform[T]) Get(id Identifier) T {
	if v, ok := p.PerPlatform[id.String()]; ok {
		return v
	}
	subsets := GetSubsets(id)
	// GetSubsets orders least-specific-first; walk most-specific-first.
	for i := len(subsets) - 1; i >= 0; i-- {
		if v, ok := p.PerPlatform[subsets[i].String()]; ok {
			return v
		}
	}
	return p.Default
}

// ApplyPerPlatformOverrides runs the two-phase inheritance algorithm: first
// each per-platform value inherits from the base via ApplyOverride; then
// more-specific platforms inherit from less-specific ones that are also
// present in the map, while user-declared specific overrides still win (they
// are applied as the override argument in the second pass).
func ApplyPerPlatformOverrides[T Override[T]](base T, overrides map[string]T) (PerPlatform[T], error) {
	result := PerPlatform[T]{Default: base, PerPlatform: map[string]T{}}

	// Phase 1: each override inherits from base.
	for key, val := range overrides {
		merged, err := base.ApplyOverride(val)
		if err != nil {
			return result, err
		}
		result.PerPlatform[key] = merged
	}

	// Phase 2: propagate from less-specific to more-specific platforms
	// that are both present in the original map.
	for key := range overrides {
		id := Parse(key)
		for _, ext := range GetExtendedPlatforms(id) {
			extKey := ext.String()
			if _, ok := overrides[extKey]; !ok {
				continue
			}
			merged, err := result.PerPlatform[key].ApplyOverride(result.PerPlatform[extKey])
			if err != nil {
				return result, err
			}
			result.PerPlatform[extKey] = merged
		}
	}

	return result, nil
}
