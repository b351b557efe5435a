package history

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/pingcap/errors"
)

// ExportCSV writes items to filename, one row per run.
func ExportCSV(items []Item, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Annotatef(err, "create %s failed", filename)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{
		"id", "startedAt", "stoppedAt", "elapsedSeconds",
		"duration", "intensity", "cores", "reason", "hungWorkers",
	}
	if err := w.Write(header); err != nil {
		return errors.Trace(err)
	}

	for _, it := range items {
		record := []string{
			it.ID,
			it.StartedAt.Format(time.RFC3339),
			it.StoppedAt.Format(time.RFC3339),
			strconv.FormatFloat(it.Elapsed, 'f', 1, 64),
			strconv.Itoa(it.Config.Duration),
			strconv.Itoa(it.Config.Intensity),
			strconv.Itoa(it.Config.Cores),
			string(it.Reason),
			strconv.Itoa(it.HungWorkers),
		}
		if err := w.Write(record); err != nil {
			return errors.Trace(err)
		}
	}

	w.Flush()
	return errors.Trace(w.Error())
}

// ExportJSON writes items to filename as an indented JSON array.
func ExportJSON(items []Item, filename string) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(os.WriteFile(filename, data, 0644))
}
