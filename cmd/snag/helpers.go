package main

import (
	"fmt"
	"time"
)

// fmtAge renders the time since t as a short human duration.
func fmtAge(t time.Time) string {
	age := time.Since(t)
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%.1fh", age.Hours())
	default:
		return fmt.Sprintf("%.1fd", age.Hours()/24)
	}
}

// fmtBytes renders a byte count with a binary unit suffix.
func fmtBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
