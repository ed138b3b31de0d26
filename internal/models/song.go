package models

// Song is an opaque catalog reference. Title and Artist are the canonical
// values used for scoring and are never included in outbound room state while
// a round is in progress.
type Song struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	MediaURL   string `json:"audioUrl"`
	DurationMs int64  `json:"durationMs"`
}
