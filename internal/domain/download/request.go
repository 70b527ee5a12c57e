package download

// Platform identifies the media source a request targets.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
)

// Qualities lists accepted YouTube quality selectors, best first.
var Qualities = []string{"2160p", "1440p", "1080p", "720p", "480p", "360p", "audio_only"}

// AudioTypes lists accepted audio codecs/containers for YouTube extraction.
var AudioTypes = []string{"mp3", "flac", "m4a", "opus", "wav"}

const (
	DefaultQuality   = "720p"
	DefaultAudioType = "mp3"
)

// RawRequest is an unvalidated submission as received from a client.
type RawRequest struct {
	URL       string
	Platform  string
	Quality   string
	AudioType string
}

// DownloadRequest is a validated, normalized download submission.
// Quality and AudioType are set only for YouTube requests.
type DownloadRequest struct {
	URL       string
	Platform  Platform
	Quality   string
	AudioType string
}

// VideoInfo describes remote media metadata reported by the extraction
// service without downloading it.
type VideoInfo struct {
	Title       string
	Duration    int64
	Uploader    string
	ViewCount   int64
	Description string
	Thumbnail   string
	UploadDate  string
}
