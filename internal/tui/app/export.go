package app

import (
	"fmt"
	"path/filepath"

	"crunch/internal/history"
)

// exportItem writes item to <dir>/crunch_run_<id>.{csv,json} and returns the
// common prefix.
func exportItem(item history.Item, dir string) (string, error) {
	base := filepath.Join(dir, fmt.Sprintf("crunch_run_%s", shortID(item.ID)))
	items := []history.Item{item}
	if err := history.ExportCSV(items, base+".csv"); err != nil {
		return "", err
	}
	if err := history.ExportJSON(items, base+".json"); err != nil {
		return "", err
	}
	return base, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
