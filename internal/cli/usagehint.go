package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// ShouldPrintUsageHint reports whether err is a parse-level mistake worth a
// "--help" pointer, as opposed to a pipeline failure.
func ShouldPrintUsageHint(err error) bool {
	if err == nil {
		return false
	}

	message := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"unknown shorthand flag",
		"accepts ",
		"requires at least",
		"requires at most",
		"requires between",
		"required flag",
		"missing required",
	}

	for _, pattern := range patterns {
		if strings.Contains(message, pattern) {
			return true
		}
	}

	return false
}

// HelpHintTarget picks the command path the usage hint should mention: the
// subcommand the user was invoking, or the root when none matches.
func HelpHintTarget(root *cobra.Command, args []string) string {
	if root == nil {
		return "transcriber"
	}

	target := root.CommandPath()
	if len(args) == 0 {
		return target
	}

	if strings.HasPrefix(args[0], "-") {
		return target
	}

	found, _, err := root.Find(args)
	if err == nil && found != nil {
		return found.CommandPath()
	}

	return target
}
