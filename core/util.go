package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// NowFunc returns the current local time.
var NowFunc = time.Now // mockable

// DayLayout is the calendar-day format exchanged with the remote API.
const DayLayout = "2006-01-02"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Day returns the calendar day of t in its own location.
func Day(t time.Time) string {
	return t.Format(DayLayout)
}

// Getwd tries to find the module root (the directory holding go.mod).
// go-test changes the working directory to the package being tested, so relative
// config paths break without this. Installed binaries have no go.mod around them:
// the working directory is returned as is.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
