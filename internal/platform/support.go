package platform

import "github.com/lux-pm/lux/internal/errs"

// Support is a mapping identifier -> bool, built from a list of
// `!id`/`id` assertion tokens.
type Support struct {
	supported map[string]bool
	exclusive bool // true when the input contained any negative assertion
}

// NewSupport parses a supported_platforms token list. Empty list means "all
// supported". Conflicting entries (an identifier asserted both positively
// and negatively, directly or via propagation) are a parse error.
func NewSupport(tokens []string) (*Support, error) {
	s := &Support{supported: map[string]bool{}}
	if len(tokens) == 0 {
		return s, nil
	}

	type assertion struct {
		id  Identifier
		pos bool
	}
	var direct []assertion
	for _, tok := range tokens {
		neg := false
		t := tok
		if len(t) > 0 && t[0] == '!' {
			neg = true
			t = t[1:]
		}
		id := Parse(t)
		if neg {
			s.exclusive = true
		}
		direct = append(direct, assertion{id: id, pos: !neg})
	}

	// Seed with direct assertions, then propagate: positive propagates to
	// all extensions, negative to all subsets.
	resolved := map[string]bool{}
	set := func(id Identifier, val bool) error {
		key := id.String()
		if existing, ok := resolved[key]; ok && existing != val {
			return &errs.PlatformConflictError{Identifier: key}
		}
		resolved[key] = val
		return nil
	}

	for _, a := range direct {
		if err := set(a.id, a.pos); err != nil {
			return nil, err
		}
		if a.pos {
			for _, ext := range GetExtendedPlatforms(a.id) {
				if err := set(ext, true); err != nil {
					return nil, err
				}
			}
		} else {
			for _, sub := range GetSubsets(a.id) {
				if err := set(sub, false); err != nil {
					return nil, err
				}
			}
		}
	}

	s.supported = resolved
	return s, nil
}

// IsSupported reports whether id is supported under this assertion set. In
// exclusive mode (any negative assertion present) unlisted identifiers
// default to supported; in inclusive mode (only positive assertions, or
// none) unlisted identifiers default to unsupported unless the set is
// empty, in which case everything is supported.
func (s *Support) IsSupported(id Identifier) bool {
	if len(s.supported) == 0 && !s.exclusive {
		return true // empty list: all supported
	}
	if v, ok := s.supported[id.String()]; ok {
		return v
	}
	return s.exclusive
}

// IsCurrentPlatformSupported consults the runtime-detected current
// platform.
func (s *Support) IsCurrentPlatformSupported() bool {
	return s.IsSupported(Current())
}
