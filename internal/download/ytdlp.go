package download

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// formatPreference is the yt-dlp -f argument, ported verbatim from
// youtube_download_manager.py's format selection: prefer opus, then
// m4a, then webm, then any bestaudio, then whatever is best.
const formatPreference = "bestaudio[ext=opus]/bestaudio[ext=m4a]/bestaudio[ext=webm]/bestaudio/best"

// YtDlpFetcher shells out to the yt-dlp binary to retrieve the audio
// stream for a YouTube video id, matching the reference manager's
// choice to delegate extraction to yt-dlp rather than reimplement a
// YouTube parser in-process.
type YtDlpFetcher struct {
	// BinPath is the yt-dlp executable; defaults to "yt-dlp" on PATH.
	BinPath string
}

func (f *YtDlpFetcher) binPath() string {
	if f.BinPath != "" {
		return f.BinPath
	}
	return "yt-dlp"
}

// Fetch downloads id into dir and returns the resulting file's path.
func (f *YtDlpFetcher) Fetch(ctx context.Context, id, dir string) (string, error) {
	outputTemplate := filepath.Join(dir, id+".%(ext)s")
	url := "https://www.youtube.com/watch?v=" + id

	args := []string{
		"-f", formatPreference,
		"--extractor-args", "youtube:player_client=android,web",
		"-o", outputTemplate,
		"--no-playlist",
		"--no-progress",
		url,
	}
	cmd := exec.CommandContext(ctx, f.binPath(), args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("yt-dlp: %w: %s", err, string(output))
	}

	path, err := findDownloaded(dir, id)
	if err != nil {
		return "", err
	}
	return path, nil
}

// findDownloaded locates the file yt-dlp produced for id, since the
// actual extension depends on which format preference matched.
func findDownloaded(dir, id string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("yt-dlp: list output dir: %w", err)
	}
	prefix := id + "."
	for _, e := range entries {
		name := e.Name()
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			return filepath.Join(dir, name), nil
		}
	}
	return "", fmt.Errorf("yt-dlp: no output file found for id %s", id)
}
