package version

import "fmt"

// Grammar records which grammar a Version was typed in, so round-trip
// display can be faithful (spec.md §4.6 / §9: "implementers must not throw
// away which grammar the user typed").
type Grammar int

const (
	GrammarSemVer Grammar = iota
	GrammarPEP440
)

func (g Grammar) String() string {
	if g == GrammarPEP440 {
		return "pep440"
	}
	return "semver"
}

// Version is a parsed version number, printable in either PEP-440 or
// SemVer form (§4.6), totally ordered and comparable regardless of which
// grammar produced it (invariant 6 in spec.md §3).
type Version struct {
	original string
	grammar  Grammar
	canon    Pep440 // canonical component form; both grammars convert into this
}

// Parse tries SemVer first, then PEP-440, per spec.md §4.6. A version
// string valid in both grammars (any plain stable release) is recorded as
// SemVer.
func Parse(s string) (Version, error) {
	if sv, err := ParseSemVer(s); err == nil {
		canon, err := sv.ToPep440()
		if err != nil {
			return Version{}, err
		}
		return Version{original: s, grammar: GrammarSemVer, canon: canon}, nil
	}

	p, err := ParsePep440(s)
	if err != nil {
		return Version{}, fmt.Errorf("version %q is neither valid SemVer nor valid PEP-440: %w", s, err)
	}
	return Version{original: s, grammar: GrammarPEP440, canon: p}, nil
}

// Original returns exactly the string this Version was parsed from.
func (v Version) Original() string { return v.original }

// Grammar reports which grammar produced this Version.
func (v Version) Grammar() Grammar { return v.grammar }

// PEP440 renders this version in canonical PEP-440 form.
func (v Version) PEP440() string { return v.canon.String() }

// SemVer renders this version in canonical SemVer form. Fails if the
// release component does not have exactly three parts.
func (v Version) SemVer() (string, error) {
	sv, err := v.canon.ToSemVer()
	if err != nil {
		return "", err
	}
	return sv.String(), nil
}

// String renders the version in whichever grammar it was parsed with.
func (v Version) String() string {
	if v.grammar == GrammarSemVer {
		if s, err := v.SemVer(); err == nil {
			return s
		}
	}
	return v.PEP440()
}

// Compare returns -1, 0, or 1. Comparison ignores which grammar produced
// either operand (invariant 6).
func (v Version) Compare(other Version) int {
	return Compare(v.canon, other.canon)
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool { return v.Compare(other) < 0 }

// Equal reports whether v and other denote the same version, regardless of
// grammar.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

// IsPrerelease reports whether this version carries a PEP-440 pre-release
// or dev-release marker.
func (v Version) IsPrerelease() bool {
	return v.canon.Pre != nil || v.canon.Dev != nil
}

// Key returns a canonical string suitable for use as a map/set key,
// satisfying spec.md §3's "hashable" requirement for Version.
func (v Version) Key() string { return v.canon.String() }
