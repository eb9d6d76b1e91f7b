package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/xdm-project/xdm-updater/internal/journal"
)

// newTable returns a table writer that renders to w.
func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row(header))
	return t
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// printMessages writes journal messages, one per line. Errors are prefixed.
func printMessages(w io.Writer, msgs []journal.Message) {
	for _, m := range msgs {
		if m.Level == journal.LevelError {
			fmt.Fprintf(w, "error: %s\n", m.Text)
			continue
		}
		fmt.Fprintln(w, m.Text)
	}
}
