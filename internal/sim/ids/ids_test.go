package ids

import "testing"

func TestCharacterIsStablePerKey(t *testing.T) {
	a := Character("heroine_07")
	b := Character(" heroine_07 ")
	if a != b {
		t.Fatalf("ids differ for same key: %s vs %s", a, b)
	}
	if a == Character("heroine_08") {
		t.Fatalf("different keys produced the same id")
	}
	if a.IsZero() {
		t.Fatalf("expected non-zero id")
	}
}

func TestCharacterEmptyKeyIsZero(t *testing.T) {
	if !Character("  ").IsZero() {
		t.Fatalf("empty key should give zero id")
	}
}

func TestCharacterTextRoundTrip(t *testing.T) {
	id := Character("heroine_01")
	b, err := id.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got CharacterID
	if err := got.UnmarshalText(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != id {
		t.Fatalf("got=%s want %s", got, id)
	}
	if p, ok := ParseCharacter(id.String()); !ok || p != id {
		t.Fatalf("ParseCharacter(%q)=%s,%v", id.String(), p, ok)
	}
	if _, ok := ParseCharacter("nope"); ok {
		t.Fatalf("expected parse failure")
	}
}
