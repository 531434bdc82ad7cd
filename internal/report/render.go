package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/xuri/excelize/v2"
)

// Sheet is a report flattened to a header and string cells, shared by the
// terminal table and the spreadsheet export.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
	Footer []any
}

const stampLayout = "2006-01-02 15:04"

func stamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(stampLayout)
}

func yes(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func WorkItemSheet(rows []WorkItemRow) Sheet {
	s := Sheet{Name: "Work items", Header: []string{"Site", "Title", "Unit", "Phase", "Status", "Holder", "Deadline", "Claimed", "Completed"}}
	for _, r := range rows {
		deadline := ""
		if r.Deadline != nil {
			deadline = r.Deadline.Format("2006-01-02")
		}
		s.Rows = append(s.Rows, []any{r.Site, r.Title, r.Unit, r.Phase, r.Status, r.Holder, deadline, stamp(r.ClaimedAt), stamp(r.CompletedAt)})
	}
	return s
}

func AttendanceSheet(rows []AttendanceRow) Sheet {
	s := Sheet{Name: "Attendance", Header: []string{"Date", "Site", "Actor", "Phone", "Check in", "Check out", "Hours", "Break", "Anomaly"}}
	var total float64
	for _, r := range rows {
		checkIn := r.CheckIn
		s.Rows = append(s.Rows, []any{r.Date, r.Site, r.Actor, r.Phone, stamp(&checkIn), stamp(r.CheckOut), r.WorkedHours, yes(r.BreakDeducted), yes(r.Anomaly)})
		total += r.WorkedHours
	}
	s.Footer = []any{"", "", "", "", "", "Total", strconv.FormatFloat(total, 'f', 2, 64), "", ""}
	return s
}

func TotalsSheet(totals []ActorTotal) Sheet {
	s := Sheet{Name: "Totals", Header: []string{"Actor", "Phone", "Days", "Hours"}}
	for _, t := range totals {
		s.Rows = append(s.Rows, []any{t.Actor, t.Phone, t.Days, t.Hours})
	}
	return s
}

func ProblemSheet(rows []ProblemRow) Sheet {
	s := Sheet{Name: "Problems", Header: []string{"Reported", "Site", "Reporter", "Status", "Work item", "Description", "Photo"}}
	for _, r := range rows {
		created := r.CreatedAt
		s.Rows = append(s.Rows, []any{stamp(&created), r.Site, r.Reporter, r.Status, r.WorkItem, r.Description, r.PhotoURL})
	}
	return s
}

// RenderTable writes the sheet as a terminal table.
func RenderTable(w io.Writer, s Sheet) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(s.Name)
	header := make(table.Row, 0, len(s.Header))
	for _, h := range s.Header {
		header = append(header, h)
	}
	tw.AppendHeader(header)
	for _, r := range s.Rows {
		tw.AppendRow(table.Row(r))
	}
	if len(s.Footer) > 0 {
		tw.AppendFooter(table.Row(s.Footer))
	}
	tw.SetStyle(table.StyleLight)
	tw.Render()
}

// WriteXLSX writes every sheet to one workbook, one tab per sheet.
func WriteXLSX(w io.Writer, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("write xlsx: no sheets")
	}
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("write xlsx: header style: %w", err)
	}

	for i, s := range sheets {
		name := s.Name
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("write xlsx: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("write xlsx: new sheet %s: %w", name, err)
		}

		header := make([]any, len(s.Header))
		for j, h := range s.Header {
			header[j] = h
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return fmt.Errorf("write xlsx: header: %w", err)
		}
		last, _ := excelize.CoordinatesToCellName(len(s.Header), 1)
		if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("write xlsx: style: %w", err)
		}
		lastCol, _ := excelize.ColumnNumberToName(len(s.Header))
		if err := f.SetColWidth(name, "A", lastCol, 18); err != nil {
			return fmt.Errorf("write xlsx: col width: %w", err)
		}

		rows := s.Rows
		if len(s.Footer) > 0 {
			rows = append(rows[:len(rows):len(rows)], s.Footer)
		}
		for j, r := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, j+2)
			row := r
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return fmt.Errorf("write xlsx: row %d: %w", j+2, err)
			}
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
