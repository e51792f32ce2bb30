// Package version implements the dual PEP-440/SemVer version model spec.md
// §4.6 calls for: parsing both grammars, rendering either one back out, and
// comparing versions regardless of which grammar produced them.
//
// Grounded stylistically on nandlabs-golly/semver/semver.go (regexp-based
// Parse, unexported fields, String() round trip) for the SemVer half; the
// PEP-440 grammar and the two-way conversion table are new code carrying
// forward original_source/src/pcswitcher/version.py's Pep440Version shape,
// since no pack dependency implements this bridge.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var pep440Re = regexp.MustCompile(
	`^(?:(\d+)!)?(\d+(?:\.\d+)*)((?:a|b|rc)\d+)?(?:\.post(\d+))?(?:\.dev(\d+))?(?:\+([0-9A-Za-z.]+))?$`,
)

var pep440PreRe = regexp.MustCompile(`^(a|b|rc)(\d+)$`)

// PreRelease is a PEP-440 pre-release marker: one of aN, bN, rcN.
type PreRelease struct {
	Type string // "a", "b", or "rc"
	Num  int
}

// Pep440 holds the parsed components of a PEP-440 version string:
// [N!]N(.N)*[{a|b|rc}N][.postN][.devN][+local]. Epochs are rejected at
// parse time; spec.md §4.6 explicitly excludes them.
type Pep440 struct {
	Release []int
	Pre     *PreRelease
	Post    *int
	Dev     *int
	Local   string
}

// ParsePep440 parses a PEP-440 version string. Epoch prefixes (N!...) are
// rejected.
func ParsePep440(s string) (Pep440, error) {
	m := pep440Re.FindStringSubmatch(s)
	if m == nil {
		return Pep440{}, fmt.Errorf("invalid PEP-440 version: %q", s)
	}
	if m[1] != "" {
		return Pep440{}, fmt.Errorf("PEP-440 epoch is not supported: %q", s)
	}

	release, err := parseIntDotted(m[2])
	if err != nil {
		return Pep440{}, fmt.Errorf("invalid PEP-440 version %q: %w", s, err)
	}

	p := Pep440{Release: release}

	if m[3] != "" {
		pm := pep440PreRe.FindStringSubmatch(m[3])
		if pm == nil {
			return Pep440{}, fmt.Errorf("invalid PEP-440 pre-release %q in %q", m[3], s)
		}
		num, _ := strconv.Atoi(pm[2])
		p.Pre = &PreRelease{Type: pm[1], Num: num}
	}
	if m[4] != "" {
		n, _ := strconv.Atoi(m[4])
		p.Post = &n
	}
	if m[5] != "" {
		n, _ := strconv.Atoi(m[5])
		p.Dev = &n
	}
	if m[6] != "" {
		p.Local = m[6]
	}

	return p, nil
}

func parseIntDotted(s string) ([]int, error) {
	parts := strings.Split(s, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// String renders the PEP-440 form, e.g. "1.0.0a1.post2.dev3+local".
func (p Pep440) String() string {
	var b strings.Builder
	for i, n := range p.Release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(n))
	}
	if p.Pre != nil {
		fmt.Fprintf(&b, "%s%d", p.Pre.Type, p.Pre.Num)
	}
	if p.Post != nil {
		fmt.Fprintf(&b, ".post%d", *p.Post)
	}
	if p.Dev != nil {
		fmt.Fprintf(&b, ".dev%d", *p.Dev)
	}
	if p.Local != "" {
		fmt.Fprintf(&b, "+%s", p.Local)
	}
	return b.String()
}

var semverPreName = map[string]string{"a": "alpha", "b": "beta", "rc": "rc"}
var pep440PreFromSemverName = map[string]string{"alpha": "a", "beta": "b", "rc": "rc"}

// ToSemVer converts this PEP-440 version to its SemVer rendering, per the
// conversion table in spec.md §4.6. The release component must have
// exactly three parts.
func (p Pep440) ToSemVer() (SemVer, error) {
	if len(p.Release) != 3 {
		return SemVer{}, fmt.Errorf(
			"PEP-440 version must have exactly 3 release parts for SemVer conversion: %s", p)
	}

	s := SemVer{Major: p.Release[0], Minor: p.Release[1], Patch: p.Release[2]}

	var pre []string
	if p.Pre != nil {
		pre = append(pre, semverPreName[p.Pre.Type], strconv.Itoa(p.Pre.Num))
	}
	// dev goes to prerelease only when there is no post release.
	if p.Dev != nil && p.Post == nil {
		pre = append(pre, "dev", strconv.Itoa(*p.Dev))
	}
	if len(pre) > 0 {
		s.Prerelease = strings.Join(pre, ".")
	}

	var build []string
	if p.Post != nil {
		build = append(build, "post", strconv.Itoa(*p.Post))
		if p.Dev != nil {
			build = append(build, "dev", strconv.Itoa(*p.Dev))
		}
	}
	if p.Local != "" {
		build = append(build, p.Local)
	}
	if len(build) > 0 {
		s.Build = strings.Join(build, ".")
	}

	return s, nil
}

// Compare returns -1, 0, or 1 comparing a and b under PEP-440 ordering
// rules: release tuple, then pre-release (absent > present), then post
// (present > absent), then dev (absent > present). Local version segments
// do not participate in ordering.
func Compare(a, b Pep440) int {
	if c := compareReleases(a.Release, b.Release); c != 0 {
		return c
	}
	if c := comparePre(a.Pre, b.Pre); c != 0 {
		return c
	}
	if c := compareIntPtr(a.Post, b.Post, true); c != 0 {
		return c
	}
	if c := compareIntPtr(a.Dev, b.Dev, false); c != 0 {
		return c
	}
	return 0
}

func compareReleases(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

var preRank = map[string]int{"a": 0, "b": 1, "rc": 2}

func comparePre(a, b *PreRelease) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1 // no pre-release sorts after any pre-release
	case b == nil:
		return -1
	}
	if preRank[a.Type] != preRank[b.Type] {
		if preRank[a.Type] < preRank[b.Type] {
			return -1
		}
		return 1
	}
	if a.Num != b.Num {
		if a.Num < b.Num {
			return -1
		}
		return 1
	}
	return 0
}

// compareIntPtr compares two optional integer components. When
// presentIsGreater is true (post releases), having the component makes the
// version greater; when false (dev releases), having the component makes
// the version lesser.
func compareIntPtr(a, b *int, presentIsGreater bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		if presentIsGreater {
			return -1
		}
		return 1
	case b == nil:
		if presentIsGreater {
			return 1
		}
		return -1
	}
	if *a != *b {
		if *a < *b {
			return -1
		}
		return 1
	}
	return 0
}
