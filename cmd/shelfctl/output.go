package main

import (
	"encoding/json"
	"io"
	"os"
	"text/tabwriter"

	"golang.org/x/term"
)

// Output formats accepted by --output.
const (
	formatAuto  = "auto"
	formatTable = "table"
	formatJSON  = "json"
)

// tableOutput reports whether results should be printed as a table. In auto
// mode that is only the case when stdout is a terminal.
func (a *app) tableOutput() bool {
	switch a.format {
	case formatTable:
		return true
	case formatJSON:
		return false
	}
	f, ok := a.out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// shortID trims a video id for table display.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
