package expr

import (
	"regexp"
	"strings"
)

var shellSafe = regexp.MustCompile(`^[\w@%+=:,./-]+$`)

// ShellQuote quotes s for a POSIX shell. Strings made only of safe characters
// are returned unchanged.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// BashCommand turns a script into a bash command line.
func BashCommand(script string) string {
	return strings.Join([]string{"bash", "-euxo", "pipefail", "-c", ShellQuote(script)}, " ")
}

// PythonCommand turns a script into a python3 command line.
func PythonCommand(script string) string {
	return strings.Join([]string{"python3", "-uc", ShellQuote(script)}, " ")
}
