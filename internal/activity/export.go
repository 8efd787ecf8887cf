package activity

import (
	"encoding/csv"
	"io"
	"strconv"
)

const (
	// UserExportFilename is the download name of the per-user export.
	UserExportFilename = "user_export.csv"
	// PageExportFilename is the download name of the per-page export.
	PageExportFilename = "pages_export.csv"
)

// AnonymousNames replace the name columns of the anonymous group.
var AnonymousNames = [3]string{"not", "authenticated", "user"}

// WriteUserStatsCSV serialises per-user statistics.
func WriteUserStatsCSV(w io.Writer, stats []UserStat) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"last_name", "first_name", "middle_name", "entries_counter"}); err != nil {
		return err
	}
	for _, s := range stats {
		record := []string{s.LastName, s.FirstName, "", strconv.FormatInt(s.Count, 10)}
		if s.MiddleName != nil {
			record[2] = *s.MiddleName
		}
		if s.Anonymous() {
			copy(record, AnonymousNames[:])
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WritePageStatsCSV serialises per-page statistics with a 1-based row
// number in the first column.
func WritePageStatsCSV(w io.Writer, stats []PageStat) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"No", "Page", "Visits Count"}); err != nil {
		return err
	}
	for i, s := range stats {
		if err := writer.Write([]string{strconv.Itoa(i + 1), s.Path, strconv.FormatInt(s.Count, 10)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
