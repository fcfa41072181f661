package transfer

type PostCreation struct {
	AccountID     int64    `json:"account_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Hashtags      []string `json:"hashtags"`
	VideoPath     string   `json:"video_path"`
	ThumbnailPath string   `json:"thumbnail_path"`
	ScheduledAt   string   `json:"scheduled_at"`
	PublishNow    bool     `json:"publish_now"`
}

type PostUpdate struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Hashtags      []string `json:"hashtags"`
	ThumbnailPath string   `json:"thumbnail_path"`
}

type CalendarEvent struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Start        string `json:"start"`
	Color        string `json:"color"`
	Platform     string `json:"platform"`
	AccountLabel string `json:"account_label"`
	Status       string `json:"status"`
}

type VideoUploadResult struct {
	Path         string  `json:"path"`
	FileName     string  `json:"filename"`
	Size         int64   `json:"size"`
	MimeType     string  `json:"mime_type"`
	URL          string  `json:"url"`
	Duration     float64 `json:"duration,omitempty"`
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
}

// VideoMetadata is the best-effort output of the media prober. Zero values
// mean probing failed or the field was absent.
type VideoMetadata struct {
	Duration  float64 `json:"duration"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Codec     string  `json:"codec"`
	FrameRate float64 `json:"frame_rate"`
	Bitrate   int64   `json:"bitrate"`
}
