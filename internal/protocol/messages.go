package protocol

// HELLO (host -> service)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	HostName        string `json:"host_name"`
}

// WELCOME (service -> host)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	FrameRateHz     int    `json:"frame_rate_hz"`
}

// INSTANCE binds a character key to the live instance backing it. An empty
// instance means the character has no instance right now.
type InstanceMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	Character       string `json:"character"`
	Instance        string `json:"instance"`
}

// RELEASE tells the service an instance was destroyed.
type ReleaseMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	Instance        string `json:"instance"`
}

type LoadingMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	Loading         bool   `json:"loading"`
}

type EventMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version,omitempty"`
	Character       string  `json:"character"`
	Kind            string  `json:"kind"`
	Region          string  `json:"region,omitempty"`
	Magnitude       float64 `json:"magnitude,omitempty"`
	First           bool    `json:"first,omitempty"`
}

// SIGNAL carries one frame of contact input for a scene slot.
type SignalMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version,omitempty"`
	Slot            int     `json:"slot"`
	Region          string  `json:"region,omitempty"`
	Reacting        bool    `json:"reacting,omitempty"`
	Caress          bool    `json:"caress,omitempty"`
	ItemOnButt      bool    `json:"item_on_butt,omitempty"`
	Speed           float64 `json:"speed,omitempty"`
}

// SceneMsg starts, ends or unloads a scene. A start must arrive before any
// EVENT for the scene's new instances; an instance that already has state is
// not seeded from the saved levels.
type SceneMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version,omitempty"`
	Action          string   `json:"action"`
	SceneKind       string   `json:"scene_kind,omitempty"`
	Free            bool     `json:"free,omitempty"`
	Participants    []string `json:"participants,omitempty"`
}

type ControlMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	Command         string `json:"command"`
}

// LEVELS (service -> host), sent when a character's levels change.
type LevelsMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Frame           uint64         `json:"frame"`
	Character       string         `json:"character"`
	Levels          map[string]int `json:"levels"`
}

type DesireMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Character       string `json:"character"`
	Desire          int    `json:"desire"`
	Amount          int    `json:"amount"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: msg}
}
