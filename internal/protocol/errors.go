package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest  = "E_PROTO_BAD_REQUEST"
	ErrProtoBadVersion  = "E_PROTO_BAD_VERSION"
	ErrProtoUnknownType = "E_PROTO_UNKNOWN_TYPE"

	// Tracker layer.
	ErrBadRequest       = "E_BAD_REQUEST"
	ErrUnknownCharacter = "E_UNKNOWN_CHARACTER"
	ErrUnknownEvent     = "E_UNKNOWN_EVENT"
	ErrNoScene          = "E_NO_SCENE"
	ErrConflict         = "E_CONFLICT"
	ErrBusy             = "E_BUSY"
	ErrInternal         = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrProtoBadVersion:  {},
	ErrProtoUnknownType: {},
	ErrBadRequest:       {},
	ErrUnknownCharacter: {},
	ErrUnknownEvent:     {},
	ErrNoScene:          {},
	ErrConflict:         {},
	ErrBusy:             {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
