package util

import (
	"os"
	"strconv"
)

//TimeFormat stores a correctly formatted timestamp
const TimeFormat string = "2006-01-02-T15:04:05-0700"

// Exists returns true if file or directory exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if os.IsNotExist(err) {
		return false
	}
	return true
}

//Min returns the smaller of two integers
func Min(a int, b int) int {
	if a < b {
		return a
	}
	return b
}

//UniquePath returns base if nothing exists there, otherwise base with the
//first free counter appended
func UniquePath(base string) string {
	path := base
	for counter := 1; Exists(path); counter++ {
		path = base + strconv.Itoa(counter)
	}
	return path
}
