package bus

const (
	TopicEvents  = "studioctl.events"
	TopicActions = "studioctl.ui.actions"
)

const (
	TypeStreamStarted = "stream.started"
	TypeStreamUpdate  = "stream.update"
	TypeStreamEnded   = "stream.ended"

	TypeStreamCloseRequest = "ui.stream.close"
)
