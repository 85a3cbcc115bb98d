package client

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core/exam"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grading"
)

// ExportResults renders results as the delimited table the server export uses, in the given order.
// The same results always give the same bytes.
func ExportResults(results []exam.Result) ([]byte, error) {
	return grading.ExportCSV(exam.ExportRows(results))
}

// SaveResults writes the export of an exam into dir and returns the file path.
// The filename has no timestamp, so a repeated export replaces the previous file.
func SaveResults(dir, examID string, results []exam.Result) (string, error) {
	doc, err := ExportResults(results)
	if err != nil {
		return "", errors.Wrap(err, "exporting results")
	}
	path := filepath.Join(dir, grading.ExportFilename(examID))
	if err = os.WriteFile(path, doc, 0o644); err != nil {
		return "", errors.Wrap(err, "writing export")
	}
	return path, nil
}
