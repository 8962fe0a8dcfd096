package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"skineffects.io/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("sample: %v", err)
	}
	return v
}

// roundJSON turns a Go message into the generic form the validator expects.
func roundJSON(t *testing.T, msg any) any {
	t.Helper()
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return decode(t, string(b))
}

func TestSchemas_ValidateSamples(t *testing.T) {
	cases := []struct {
		schema string
		sample string
	}{
		{"hello.schema.json", `{"type":"HELLO","protocol_version":"1.0","host_name":"koikatsu"}`},
		{"instance.schema.json", `{"type":"INSTANCE","character":"heroine/3","instance":"cha-1291"}`},
		{"instance.schema.json", `{"type":"INSTANCE","character":"heroine/3","instance":""}`},
		{"release.schema.json", `{"type":"RELEASE","instance":"cha-1291"}`},
		{"loading.schema.json", `{"type":"LOADING","loading":true}`},
		{"event.schema.json", `{"type":"EVENT","character":"heroine/3","kind":"insert_vaginal","first":true}`},
		{"event.schema.json", `{"type":"EVENT","character":"heroine/3","kind":"touch","region":"butt_l","magnitude":1}`},
		{"signal.schema.json", `{"type":"SIGNAL","slot":0,"region":"butt_r","reacting":true,"caress":true,"item_on_butt":true,"speed":0.7}`},
		{"scene.schema.json", `{"type":"SCENE","action":"start","scene_kind":"h","participants":["heroine/3","heroine/4"]}`},
		{"scene.schema.json", `{"type":"SCENE","action":"unload","participants":["heroine/3"]}`},
		{"control.schema.json", `{"type":"CONTROL","command":"period_changed"}`},
		{"welcome.schema.json", `{"type":"WELCOME","protocol_version":"1.0","session_id":"sess_0b3f","frame_rate_hz":30}`},
		{"levels.schema.json", `{"type":"LEVELS","protocol_version":"1.0","frame":12,"character":"heroine/3","levels":{"tear":2,"buttTouch":1}}`},
		{"desire.schema.json", `{"type":"DESIRE","protocol_version":"1.0","character":"heroine/3","desire":2,"amount":200}`},
		{"error.schema.json", `{"type":"ERROR","protocol_version":"1.0","code":"E_UNKNOWN_CHARACTER","message":"no instance"}`},
	}
	schemas := map[string]*jsonschema.Schema{}
	for _, tc := range cases {
		s := schemas[tc.schema]
		if s == nil {
			s = compile(t, tc.schema)
			schemas[tc.schema] = s
		}
		if err := s.Validate(decode(t, tc.sample)); err != nil {
			t.Fatalf("%s: %v", tc.schema, err)
		}
	}
}

func TestSchemas_RejectBadSamples(t *testing.T) {
	cases := []struct {
		schema string
		sample string
	}{
		{"event.schema.json", `{"type":"EVENT","character":"heroine/3","kind":"explode"}`},
		{"event.schema.json", `{"type":"EVENT","kind":"kiss"}`},
		{"scene.schema.json", `{"type":"SCENE","action":"pause"}`},
		{"scene.schema.json", `{"type":"SCENE","action":"start","participants":["heroine/3","heroine/3"]}`},
		{"levels.schema.json", `{"type":"LEVELS","protocol_version":"1.0","frame":1,"character":"x","levels":{"glitter":1}}`},
		{"control.schema.json", `{"type":"CONTROL","command":"reboot"}`},
	}
	for _, tc := range cases {
		if err := compile(t, tc.schema).Validate(decode(t, tc.sample)); err == nil {
			t.Fatalf("%s accepted %s", tc.schema, tc.sample)
		}
	}
}

func TestSchemas_OutboundStructsConform(t *testing.T) {
	welcome := protocol.WelcomeMsg{Type: protocol.TypeWelcome, ProtocolVersion: protocol.Version, SessionID: "sess_x", FrameRateHz: 30}
	levels := protocol.LevelsMsg{Type: protocol.TypeLevels, ProtocolVersion: protocol.Version, Frame: 3, Character: "c", Levels: map[string]int{"sweat": 1}}
	desire := protocol.DesireMsg{Type: protocol.TypeDesire, ProtocolVersion: protocol.Version, Character: "c", Desire: 2, Amount: 200}

	if err := compile(t, "welcome.schema.json").Validate(roundJSON(t, welcome)); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if err := compile(t, "levels.schema.json").Validate(roundJSON(t, levels)); err != nil {
		t.Fatalf("levels: %v", err)
	}
	if err := compile(t, "desire.schema.json").Validate(roundJSON(t, desire)); err != nil {
		t.Fatalf("desire: %v", err)
	}
	if err := compile(t, "error.schema.json").Validate(roundJSON(t, protocol.NewError(protocol.ErrNoScene, "no scene"))); err != nil {
		t.Fatalf("error: %v", err)
	}
}
