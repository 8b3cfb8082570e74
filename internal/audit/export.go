package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// exportHeader is the fixed export contract: five columns, this order.
// The localized names come from the original clinic deployment.
var exportHeader = []string{"Date", "Utilisateur", "Action", "Type", "Détails"}

const exportTimeLayout = "02/01/2006 15:04:05"

// ExportFilename returns the download name for an export generated now.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("logs-acces-%s.csv", now.Format("2006-01-02"))
}

// WriteCSV serialises resolved entries in log order. encoding/csv
// applies RFC 4180 quoting, so details containing commas, quotes or
// newlines survive a round trip.
func WriteCSV(w io.Writer, entries []ResolvedEntry, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return err
	}
	for _, e := range entries {
		actor := e.ActorName
		if actor == "" {
			actor = e.ActorEmail
		}
		if actor == "" {
			actor = e.ActorID
		}
		record := []string{
			e.CreatedAt.In(loc).Format(exportTimeLayout),
			actor,
			string(e.Action),
			string(e.TargetType),
			e.Details,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
