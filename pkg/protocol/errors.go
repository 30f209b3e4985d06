package protocol

const (
	ErrProtocolInvalidJSON   = "E_PROTOCOL_INVALID_JSON"
	ErrProtocolInvalidFrame  = "E_PROTOCOL_INVALID_FRAME"
	ErrProtocolInvalidKind   = "E_PROTOCOL_INVALID_KIND"
	ErrProtocolNotProcessing = "E_PROTOCOL_NOT_PROCESSING"
)
