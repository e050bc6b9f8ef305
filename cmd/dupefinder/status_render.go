package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"dupefinder/internal/locator"
	"dupefinder/internal/scanresult"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

// engineStatusLines renders one line per engine location. The configured
// mode is marked; a missing development engine is only a warning since scans
// build it on demand.
func engineStatusLines(statuses []locator.Status, configured locator.Mode, colorize bool) []string {
	lines := make([]string, 0, len(statuses))
	for _, st := range statuses {
		label := string(st.Mode)
		if st.Mode == configured {
			label += " (active)"
		}
		kind := statusOK
		detail := fmt.Sprintf("%s (%s)", st.Detail, st.Path)
		switch {
		case st.Available():
		case st.Mode == locator.ModeDevelopment && !st.Present:
			kind = statusWarn
			detail = fmt.Sprintf("not built yet; next scan builds %s", st.Path)
		case st.Mode == configured:
			kind = statusError
		default:
			kind = statusInfo
		}
		lines = append(lines, renderStatusLine(label, kind, detail, colorize))
	}
	return lines
}

func scanSummaryLines(directory string, result scanresult.Result, colorize bool) []string {
	lines := renderSectionHeader("Scan results", colorize)
	lines = append(lines, renderStatusLine("Directory", statusInfo, directory, colorize))
	if total, ok := result.TotalFiles(); ok {
		lines = append(lines, renderStatusLine("Files considered", statusInfo, formatCount(total), colorize))
	}
	groupKind := statusOK
	if result.GroupCount() > 0 {
		groupKind = statusWarn
	}
	lines = append(lines,
		renderStatusLine("Duplicate groups", groupKind, formatCount(result.GroupCount()), colorize),
		renderStatusLine("Duplicate files", groupKind, formatCount(result.TotalDuplicates()), colorize),
	)
	if result.Format == scanresult.FormatLegacy {
		lines = append(lines, renderStatusLine("Output format", statusWarn, "legacy engine output; totals unavailable", colorize))
	}
	return lines
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
