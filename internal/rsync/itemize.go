package rsync

import "strings"

// Changes summarizes the itemized-change output of one transfer.
type Changes struct {
	// Transferred counts files the tool reported as sent or received.
	Transferred int
	// Deleted counts destination files removed by delete-extraneous.
	Deleted int
}

// ParseItemized extracts file counts from the tool's --itemize-changes
// output. Parsing is best-effort: output the tool did not itemize simply
// contributes nothing, it is never an error.
func ParseItemized(output string) Changes {
	var ch Changes
	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.HasPrefix(line, ">f"), strings.HasPrefix(line, "<f"):
			ch.Transferred++
		case strings.HasPrefix(line, "*deleting"):
			ch.Deleted++
		}
	}
	return ch
}
