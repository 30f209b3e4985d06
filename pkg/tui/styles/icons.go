package styles

import "github.com/go-go-golems/studioctl/pkg/progress"

const (
	IconSuccess      = "✓"
	IconError        = "✗"
	IconWarning      = "⚠"
	IconRunning      = "▶"
	IconPending      = "○"
	IconClosed       = "⊘"
	IconBullet       = "•"
	IconArtifact     = "↓"
	IconDisconnected = "⚡"
)

func OutcomeIcon(o progress.Outcome) string {
	switch o {
	case progress.OutcomeComplete:
		return IconSuccess
	case progress.OutcomeFailed:
		return IconError
	case progress.OutcomeDisconnected:
		return IconDisconnected
	case progress.OutcomeRunning:
		return IconRunning
	default:
		return IconPending
	}
}
