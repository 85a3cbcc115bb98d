package grading

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ExportHeader is the fixed column order of a results export.
var ExportHeader = []string{"student_name", "email", "obtained", "total", "percentage", "result", "submitted_at"}

// utf8BOM lets spreadsheet apps detect UTF-8 (Arabic labels).
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const exportDateLayout = "2006-01-02 15:04:05"

type ExportRow struct {
	StudentName string
	Email       string
	Obtained    float64
	Total       float64
	Percentage  float64
	SubmittedAt time.Time
}

// ExportFilename is timestamp-free so repeated exports of an exam share a name.
func ExportFilename(examID string) string {
	return fmt.Sprintf("exam-%s-results.csv", examID)
}

// WriteCSV writes rows in the given order. Same rows give byte-identical output.
func WriteCSV(w io.Writer, rows []ExportRow) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.StudentName,
			r.Email,
			formatNumber(r.Obtained),
			formatNumber(r.Total),
			formatNumber(r.Percentage),
			PassLabel(r.Percentage),
			r.SubmittedAt.UTC().Format(exportDateLayout),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV is WriteCSV into memory.
func ExportCSV(rows []ExportRow) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
