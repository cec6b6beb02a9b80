package scheduler

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderTable writes a human-readable summary of one cycle: one row per item
// followed by the permalinks that were alerted.
func RenderTable(w io.Writer, report CycleReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("cycle %d  fetch %.2fs", report.Seq, report.FetchDuration.Seconds()))
	t.AppendHeader(table.Row{"#", "ID", "Status", "Alert", "Text"})
	for _, item := range report.Items {
		status := "seen"
		if item.New() {
			status = "new"
		}
		flag := "-"
		if item.Match {
			flag = "ALERT"
		}
		t.AppendRow(table.Row{item.Index, item.ID, status, flag, truncate(item.Text, rowTextLimit)})
	}
	t.Render()

	for _, item := range report.AlertedItems() {
		fmt.Fprintf(w, "ALERT %s %s\n", item.Permalink, truncate(item.Text, alertTextLimit))
	}
}
