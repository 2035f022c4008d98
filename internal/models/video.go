package models

// VideoMetadata is immutable once fetched. VideoID is the 11-character
// YouTube identifier extracted from the input URL.
type VideoMetadata struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	Channel     string `json:"channel"`
	Thumbnail   string `json:"thumbnail"`
	Duration    string `json:"duration"` // formatted H:MM:SS or M:SS
	Description string `json:"description"`
}

type TranscriptSegment struct {
	Text            string  `json:"text"`
	StartSeconds    float64 `json:"start"`
	DurationSeconds float64 `json:"duration"`
}

// Transcript carries the space-joined full text plus the timed segments it
// was joined from. A Transcript with zero segments is never constructed;
// absence is reported as an error instead.
type Transcript struct {
	Text     string              `json:"text"`
	Segments []TranscriptSegment `json:"segments"`
}

type ResolveResult struct {
	Metadata   *VideoMetadata `json:"metadata"`
	Transcript *Transcript    `json:"transcript,omitempty"`
}
