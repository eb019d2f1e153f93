package attendance

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/ebd/core/user"
)

var reportHeader = []string{"Nome", "Frequência", "Presenças"}

const reportSheet = "Frequência"

// ReportRow is the attendance summary of one student.
type ReportRow struct {
	Name         string   `json:"name"`
	Frequency    int      `json:"frequency"`
	PresentDates []string `json:"presentDates"`
}

// Percent renders the frequency as "NN%".
func (r ReportRow) Percent() string {
	return strconv.Itoa(r.Frequency) + "%"
}

// BuildReport summarizes records for every approved student, sorted by name.
func BuildReport(students []user.User, records []Attendance) []ReportRow {
	rows := make([]ReportRow, 0, len(students))
	for _, s := range students {
		if !s.IsStudent() || !s.IsApproved {
			continue
		}
		own := ForUser(records, s.ID)
		rows = append(rows, ReportRow{
			Name:         s.Name,
			Frequency:    Frequency(own),
			PresentDates: PresentDates(own),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

// WriteCSV writes a header row followed by one row per student: name, "NN%", present dates joined with "|".
func WriteCSV(w io.Writer, rows []ReportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Name, r.Percent(), strings.Join(r.PresentDates, "|")}); err != nil {
			return errors.Wrap(err, "writing row")
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the same report as WriteCSV as a spreadsheet.
func WriteXLSX(w io.Writer, rows []ReportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	for i, h := range reportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(reportSheet, cell, h); err != nil {
			return errors.Wrap(err, "writing header")
		}
	}
	if err := f.SetCellStyle(reportSheet, "A1", "C1", style); err != nil {
		return errors.Wrap(err, "styling header")
	}

	for i, r := range rows {
		row := i + 2
		values := []interface{}{r.Name, r.Percent(), strings.Join(r.PresentDates, "|")}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			if err := f.SetCellValue(reportSheet, cell, v); err != nil {
				return errors.Wrap(err, "writing row")
			}
		}
	}
	if err := f.SetColWidth(reportSheet, "A", "A", 30); err != nil {
		return errors.Wrap(err, "sizing columns")
	}
	if err := f.SetColWidth(reportSheet, "C", "C", 60); err != nil {
		return errors.Wrap(err, "sizing columns")
	}

	_, err = f.WriteTo(w)
	return errors.Wrap(err, "writing spreadsheet")
}
