package main

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/lukelai18/ECommerce-API/internal/ui"
)

// helpStyle colors one capture group of every match of re.
type helpStyle struct {
	re     *regexp.Regexp
	group  int
	render func(string) string
}

var helpStyles = []helpStyle{
	// Group headers such as "Records:" or "Flags:".
	{regexp.MustCompile(`(?m)^([A-Z][^\n]*:)[ \t]*$`), 1, ui.RenderAccent},
	// Command names in the command list.
	{regexp.MustCompile(`(?m)^  (\S+)  `), 1, ui.RenderCommand},
	// Flag value types, e.g. "--url string".
	{regexp.MustCompile(`--?\S+\s+(string|strings|int|duration|stringSlice)\b`), 1, ui.RenderMuted},
	{regexp.MustCompile(`(\(default [^)]*\))`), 1, ui.RenderMuted},
}

// colorizedHelpFunc renders cobra's usage text and, on a color terminal,
// styles headers, command names and flag annotations.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		if !ui.ShouldUseColor() || noColor {
			_ = cmd.Usage()
			return
		}
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelp(buf.String()))
	}
}

func colorizeHelp(s string) string {
	for _, st := range helpStyles {
		s = st.re.ReplaceAllStringFunc(s, func(match string) string {
			idx := st.re.FindStringSubmatchIndex(match)
			start, end := idx[2*st.group], idx[2*st.group+1]
			return match[:start] + st.render(match[start:end]) + match[end:]
		})
	}
	return s
}
