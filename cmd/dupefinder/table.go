package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"dupefinder/internal/scanresult"
	"dupefinder/internal/settings"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// groupRows lists every member with the 1-based group and member numbers that
// `dupefinder delete` accepts.
func groupRows(result scanresult.Result) [][]string {
	rows := make([][]string, 0, result.TotalDuplicates())
	for g, group := range result.Groups {
		for m, path := range group.Files {
			groupLabel := ""
			if m == 0 {
				groupLabel = strconv.Itoa(g + 1)
			}
			rows = append(rows, []string{groupLabel, strconv.Itoa(m + 1), path, shortHash(group.Hash)})
		}
	}
	return rows
}

func renderGroupTable(result scanresult.Result) string {
	return renderTable(
		[]string{"Group", "Member", "Path", "Hash"},
		groupRows(result),
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft},
	)
}

func renderHistoryTable(records []settings.ScanRecord) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		elapsed := "-"
		if rec.FinishedAt != nil {
			elapsed = rec.FinishedAt.Sub(rec.StartedAt).Round(10 * time.Millisecond).String()
		}
		outcome := rec.State
		if rec.ErrorKind != "" {
			outcome = fmt.Sprintf("%s (%s)", rec.State, rec.ErrorKind)
		}
		rows = append(rows, []string{
			shortID(rec.SessionID),
			formatWhen(rec.StartedAt),
			rec.Directory,
			outcome,
			formatCount(rec.Groups),
			formatCount(rec.Duplicates),
			elapsed,
		})
	}
	return renderTable(
		[]string{"Session", "Started", "Directory", "State", "Groups", "Duplicates", "Elapsed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	if hash == "" {
		return "-"
	}
	return hash
}
