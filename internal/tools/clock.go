package tools

import "context"

// TimestampLayout is the compact layout used for versioned file names,
// e.g. index-20250102150405.html.
const TimestampLayout = "20060102150405"

type GetTimestampParams struct{}

type GetTimestampResult struct {
	Status
	Timestamp string `json:"timestamp"`
}

// GetTimestamp returns the local wall clock in TimestampLayout.
func (t *Toolbox) GetTimestamp(_ context.Context, _ GetTimestampParams) GetTimestampResult {
	ts := t.now().Format(TimestampLayout)
	return GetTimestampResult{Status: succeeded("Current timestamp is %s.", ts), Timestamp: ts}
}
