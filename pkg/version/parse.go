package version

import (
	"fmt"
	"regexp"
)

// versionTokenRe matches a single version token in either grammar: a
// three-part release optionally followed by a PEP-440 pre-release marker
// and then any run of dot/dash/plus-separated identifiers (covering both
// PEP-440's .postN/.devN/+local and SemVer's -prerelease/+build). Carried
// forward from original_source/src/pcswitcher/version.py's
// parse_version_str_from_cli_output.
var versionTokenRe = regexp.MustCompile(`\d+\.\d+\.\d+(?:(?:a|b|rc)\d+)?(?:[-+.][\w.]+)*`)

// FindOneVersion extracts exactly one version token from free-form text
// (e.g. the output of "pc-switcher --version"). It fails if zero or more
// than one distinct token is found.
func FindOneVersion(text string) (string, error) {
	matches := versionTokenRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return "", fmt.Errorf("no version token found in %q", text)
	}

	distinct := map[string]struct{}{}
	for _, m := range matches {
		distinct[m] = struct{}{}
	}
	if len(distinct) > 1 {
		return "", fmt.Errorf("multiple distinct version tokens found in %q: %v", text, matches)
	}

	return matches[0], nil
}
