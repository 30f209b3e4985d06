package progress

import (
	"fmt"
	"path"
	"strings"
	"time"
)

func NewArtifact(p string) Artifact {
	return Artifact{Path: p, Label: ArtifactLabel(p)}
}

// ArtifactLabel picks a display label from the file name suffix.
func ArtifactLabel(p string) string {
	name := path.Base(strings.ReplaceAll(p, "\\", "/"))
	switch {
	case strings.HasSuffix(name, "_podcast_script.txt"):
		return "Final Script: " + name
	case strings.HasSuffix(name, "_report.txt"):
		return "Generated Report: " + name
	case strings.HasSuffix(name, ".mp4"):
		return "Podcast Video: " + name
	default:
		return "Download: " + name
	}
}

// FormatDuration renders d as HH:MM:SS, truncating sub-second precision.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
