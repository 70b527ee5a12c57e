package download

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate normalizes a raw submission into a DownloadRequest.
// It is a pure function: no I/O, no side effects.
func Validate(raw RawRequest) (DownloadRequest, error) {
	if strings.TrimSpace(raw.URL) == "" {
		return DownloadRequest{}, &ValidationError{Kind: MissingField, Message: "url is required"}
	}

	parsed, err := url.Parse(raw.URL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return DownloadRequest{}, &ValidationError{Kind: InvalidUrl, Message: "url must be an absolute URL"}
	}

	inferred, ok := InferPlatform(parsed.Host)
	declared := Platform(strings.ToLower(strings.TrimSpace(raw.Platform)))

	switch {
	case declared == "" && !ok:
		return DownloadRequest{}, &ValidationError{Kind: PlatformMismatch, Message: "url host matches no supported platform"}
	case declared == "":
		declared = inferred
	case declared != PlatformYouTube && declared != PlatformInstagram:
		return DownloadRequest{}, &ValidationError{Kind: InvalidOption, Message: fmt.Sprintf("unknown platform %q", raw.Platform)}
	case !ok || declared != inferred:
		return DownloadRequest{}, &ValidationError{Kind: PlatformMismatch, Message: fmt.Sprintf("url host %q does not match platform %q", parsed.Host, declared)}
	}

	req := DownloadRequest{URL: raw.URL, Platform: declared}

	// Quality and audio selection only make sense for YouTube; the
	// extraction service ignores both for Instagram posts.
	if declared == PlatformYouTube {
		req.Quality = strings.TrimSpace(raw.Quality)
		if req.Quality == "" {
			req.Quality = DefaultQuality
		}
		if !contains(Qualities, req.Quality) {
			return DownloadRequest{}, &ValidationError{Kind: InvalidOption, Message: fmt.Sprintf("unknown quality %q", raw.Quality)}
		}

		req.AudioType = strings.TrimSpace(raw.AudioType)
		if req.AudioType == "" {
			req.AudioType = DefaultAudioType
		}
		if !contains(AudioTypes, req.AudioType) {
			return DownloadRequest{}, &ValidationError{Kind: InvalidOption, Message: fmt.Sprintf("unknown audio type %q", raw.AudioType)}
		}
	}

	return req, nil
}

// InferPlatform maps a URL host to a supported platform.
func InferPlatform(host string) (Platform, bool) {
	host = strings.ToLower(host)
	switch {
	case strings.Contains(host, "youtube.com"), strings.Contains(host, "youtu.be"):
		return PlatformYouTube, true
	case strings.Contains(host, "instagram.com"):
		return PlatformInstagram, true
	default:
		return "", false
	}
}

func contains(set []string, value string) bool {
	for _, v := range set {
		if v == value {
			return true
		}
	}
	return false
}
