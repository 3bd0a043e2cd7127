package orchestrator

import "regexp"

// videoEmbedIDPattern extracts the video id from the youtube-nocookie
// single-video embed URL verifier.Result produces for store.EmbedVideo
// kind results (playlist-kind results are not queued: the Download
// Manager downloads one video id at a time, not a playlist).
var videoEmbedIDPattern = regexp.MustCompile(`/embed/([^/?&]+)$`)

func videoIDFromEmbed(embedURL string) string {
	m := videoEmbedIDPattern.FindStringSubmatch(embedURL)
	if m == nil {
		return ""
	}
	return m[1]
}
