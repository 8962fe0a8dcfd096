package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello    = "HELLO"
	TypeInstance = "INSTANCE"
	TypeRelease  = "RELEASE"
	TypeLoading  = "LOADING"
	TypeEvent    = "EVENT"
	TypeSignal   = "SIGNAL"
	TypeScene    = "SCENE"
	TypeControl  = "CONTROL"

	TypeWelcome = "WELCOME"
	TypeLevels  = "LEVELS"
	TypeDesire  = "DESIRE"
	TypeError   = "ERROR"
)

// Scene actions.
const (
	SceneStart  = "start"
	SceneEnd    = "end"
	SceneUnload = "unload"
)

// Control commands.
const (
	ControlDayChanged    = "day_changed"
	ControlPeriodChanged = "period_changed"
	ControlClearEffects  = "clear_effects"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
