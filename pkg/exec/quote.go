package exec

import "strings"

// wrapLoginShell rewraps args as ["bash", "-l", "-c", <quoted joined
// args>], so a remote (or sandboxed local) command inherits the target
// user's full login environment, per spec.md §4.2(c). Mirrors
// original_source/executor.py's use of shlex.quote before handing a
// command to `bash -l -c`.
func wrapLoginShell(args []string) []string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellQuote(a)
	}
	return []string{"bash", "-l", "-c", strings.Join(quoted, " ")}
}

// shellQuote POSIX-quotes a single argument for inclusion in a shell
// command line. No ecosystem shlex equivalent appears anywhere in the
// example pack, so this hand-rolled version is used; see DESIGN.md.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, "\t\n \"'$`\\!*?[](){}<>|;&~#") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
