package job

// Format is a single downloadable quality/format option offered to the
// caller. The ID is the token later passed back in a download request.
type Format struct {
	ID              string `json:"id"`
	Label           string `json:"label"`
	Container       string `json:"container"`
	HasAudio        bool   `json:"has_audio"`
	HasVideo        bool   `json:"has_video"`
	ApproxSizeBytes int64  `json:"approx_size_bytes,omitempty"`
	Height          int    `json:"height,omitempty"`
}

// ProbeResult is the outcome of a metadata-only extractor run. It is
// returned synchronously from an analyze call and never persisted.
type ProbeResult struct {
	Title     string   `json:"title"`
	Uploader  string   `json:"uploader"`
	Thumbnail string   `json:"thumbnail"`
	Duration  int      `json:"duration"`
	Formats   []Format `json:"formats"`
}
