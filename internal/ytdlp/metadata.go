package ytdlp

// Metadata contains information extracted about a video without downloading it
type Metadata struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	Duration   float64 `json:"duration"`
	ViewCount  int64   `json:"view_count"`
	UploadDate string  `json:"upload_date"`
	WebpageURL string  `json:"webpage_url"`
}

// ytdlpOutput represents the JSON output from yt-dlp --dump-json
type ytdlpOutput struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	Duration   float64 `json:"duration"`
	ViewCount  int64   `json:"view_count"`
	UploadDate string  `json:"upload_date"`
	WebpageURL string  `json:"webpage_url"`
	Extractor  string  `json:"extractor"`
}

// toMetadata converts raw yt-dlp output to Metadata
func (o *ytdlpOutput) toMetadata() *Metadata {
	m := &Metadata{
		ID:         o.ID,
		Title:      o.Title,
		Uploader:   o.Uploader,
		Duration:   o.Duration,
		ViewCount:  o.ViewCount,
		UploadDate: o.UploadDate,
		WebpageURL: o.WebpageURL,
	}

	if m.Uploader == "" {
		m.Uploader = o.Channel
	}
	if m.Title == "" {
		m.Title = "Unknown Title"
	}

	return m
}
