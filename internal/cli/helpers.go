package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

// commandContext returns the command's context, or a background context
// when the command was run without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func containsString(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}

// listOrNone joins items for messages, or returns "none".
func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

// splitDomains splits a comma-separated domain argument, dropping empty
// entries.
func splitDomains(arg string) []string {
	var domains []string
	for _, d := range strings.Split(arg, ",") {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}
	return domains
}
