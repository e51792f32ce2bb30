package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// semverRe mirrors nandlabs-golly/semver's RegexSemver.
var semverRe = regexp.MustCompile(
	`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(-([0-9A-Za-z-]+(\.[0-9A-Za-z-]+)*))?(\+([0-9A-Za-z-]+(\.[0-9A-Za-z-]+)*))?$`,
)

// SemVer holds the parsed components of a SemVer version string:
// X.Y.Z[-prerelease][+build].
type SemVer struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
	Build      string
}

// ParseSemVer parses a strict SemVer version string.
func ParseSemVer(s string) (SemVer, error) {
	m := semverRe.FindStringSubmatch(s)
	if m == nil {
		return SemVer{}, fmt.Errorf("invalid SemVer version: %q", s)
	}

	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])

	return SemVer{Major: major, Minor: minor, Patch: patch, Prerelease: m[5], Build: m[8]}, nil
}

// String renders the SemVer form, e.g. "1.0.0-alpha.1+post.2.local".
func (s SemVer) String() string {
	out := fmt.Sprintf("%d.%d.%d", s.Major, s.Minor, s.Patch)
	if s.Prerelease != "" {
		out += "-" + s.Prerelease
	}
	if s.Build != "" {
		out += "+" + s.Build
	}
	return out
}

// ToPep440 converts this SemVer version to PEP-440, the reverse of
// Pep440.ToSemVer, per the conversion table in spec.md §4.6.
func (s SemVer) ToPep440() (Pep440, error) {
	p := Pep440{Release: []int{s.Major, s.Minor, s.Patch}}

	var dev *int
	if s.Prerelease != "" {
		pre, preDev, err := parseSemverPrerelease(s.Prerelease)
		if err != nil {
			return Pep440{}, err
		}
		p.Pre = pre
		dev = preDev
	}

	if s.Build != "" {
		post, buildDev, local, err := parseSemverBuild(s.Build)
		if err != nil {
			return Pep440{}, err
		}
		p.Post = post
		if buildDev != nil {
			dev = buildDev
		}
		p.Local = local
	}

	p.Dev = dev
	return p, nil
}

func parseSemverPrerelease(prerelease string) (*PreRelease, *int, error) {
	parts := strings.Split(prerelease, ".")
	var pre *PreRelease
	var dev *int

	for i := 0; i < len(parts); {
		part := parts[i]
		if typ, ok := pep440PreFromSemverName[part]; ok {
			if i+1 >= len(parts) {
				return nil, nil, fmt.Errorf("pre-release type %q missing number", part)
			}
			num, err := strconv.Atoi(parts[i+1])
			if err != nil {
				return nil, nil, fmt.Errorf("pre-release type %q has non-numeric number: %w", part, err)
			}
			pre = &PreRelease{Type: typ, Num: num}
			i += 2
			continue
		}
		if part == "dev" {
			if i+1 >= len(parts) {
				return nil, nil, fmt.Errorf("dev release missing number")
			}
			num, err := strconv.Atoi(parts[i+1])
			if err != nil {
				return nil, nil, fmt.Errorf("dev release has non-numeric number: %w", err)
			}
			dev = &num
			i += 2
			continue
		}
		return nil, nil, fmt.Errorf("unrecognized prerelease identifier %q", part)
	}

	return pre, dev, nil
}

func parseSemverBuild(build string) (post *int, dev *int, local string, err error) {
	parts := strings.Split(build, ".")
	i := 0
	localStart := -1

	if i < len(parts) && parts[i] == "post" && i+1 < len(parts) && isDigits(parts[i+1]) {
		n, _ := strconv.Atoi(parts[i+1])
		post = &n
		i += 2

		if i < len(parts) && parts[i] == "dev" && i+1 < len(parts) && isDigits(parts[i+1]) {
			n, _ := strconv.Atoi(parts[i+1])
			dev = &n
			i += 2
		}
	}

	if i < len(parts) {
		localStart = i
	}
	if localStart >= 0 {
		local = strings.Join(parts[localStart:], ".")
	}

	return post, dev, local, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
