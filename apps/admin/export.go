package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core/attendance"
)

var errUnknownFormat = errors.New("output file must end with .csv or .xlsx")

// exportAttendance writes the attendance report of a class to out.
func (cli *commandLine) exportAttendance(classID, out string) error {
	var write func(f *os.File, rows []attendance.ReportRow) error
	switch strings.ToLower(filepath.Ext(out)) {
	case ".csv":
		write = func(f *os.File, rows []attendance.ReportRow) error { return attendance.WriteCSV(f, rows) }
	case ".xlsx":
		write = func(f *os.File, rows []attendance.ReportRow) error { return attendance.WriteXLSX(f, rows) }
	default:
		return errUnknownFormat
	}

	cls, err := cli.classSvc.GetByID(classID)
	if err != nil {
		return err
	}
	rows := cli.dashSvc.Report(cls.ID)

	f, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "creating report file")
	}
	if err := write(f, rows); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "writing report")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "closing report file")
	}
	fmt.Printf("%d students exported to %s\n", len(rows), out)
	return nil
}
