package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// LegacyPrefix starts each group line in the plain-text format.
const LegacyPrefix = "Duplicates:"

// WriteJSON writes the report as one indented JSON object.
func WriteJSON(w io.Writer, report Report) error {
	if report.DuplicateGroups == nil {
		report.DuplicateGroups = []Group{}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// WriteLegacy writes one `Duplicates:a|b` line per group.
func WriteLegacy(w io.Writer, report Report) error {
	for _, group := range report.DuplicateGroups {
		if _, err := fmt.Fprintf(w, "%s %s\n", LegacyPrefix, strings.Join(group.Files, "|")); err != nil {
			return err
		}
	}
	return nil
}
