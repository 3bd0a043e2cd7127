package download

import (
	"os"
	"path/filepath"
	"strings"
)

// cleanupPartial removes residual partial-download artifacts for id,
// matching youtube_download_manager.py's glob over {video_id}* filtered
// to .part/.ytdl/Frag suffixes before each attempt.
func cleanupPartial(dir, id string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, id) {
			continue
		}
		if strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") || strings.Contains(name, "Frag") {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
}

func statSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func sizeOf(path string) int64 {
	n, err := statSize(path)
	if err != nil {
		return 0
	}
	return n
}

func filenameOf(path string) string {
	return filepath.Base(path)
}
