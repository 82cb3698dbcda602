package media

import (
	"net/url"
	"strings"
)

// EmbedURL rewrites share links of known hosts into URLs a video player can
// load directly. Dropbox links are pointed at the raw content host and Google
// Drive viewer links at the preview page. Anything else is returned unchanged.
func EmbedURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return raw
	}

	switch strings.ToLower(u.Host) {
	case "www.dropbox.com", "dropbox.com":
		u.Host = "dl.dropboxusercontent.com"
		q := u.Query()
		q.Del("dl")
		u.RawQuery = q.Encode()
		return u.String()
	case "drive.google.com":
		if strings.HasSuffix(u.Path, "/view") {
			u.Path = strings.TrimSuffix(u.Path, "/view") + "/preview"
			u.RawQuery = ""
			return u.String()
		}
	}
	return raw
}

// EmbedURLs maps EmbedURL over urls.
func EmbedURLs(urls []string) []string {
	if len(urls) == 0 {
		return nil
	}
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = EmbedURL(u)
	}
	return out
}
