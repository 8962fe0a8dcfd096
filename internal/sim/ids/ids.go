package ids

import (
	"strings"

	"github.com/google/uuid"
)

// CharacterID identifies a logical character for the lifetime of a session.
// It stays the same while the host swaps the instance backing the character.
type CharacterID uuid.UUID

// namespace for name-based character ids; fixed so ids are reproducible across runs and replays.
var characterNS = uuid.MustParse("6f1c5e0a-4b8e-4c47-9a55-2f8d1f0b7a11")

// Character derives the id for a host character key (save slot / heroine key).
// Keys are trimmed; an empty key yields the zero id.
func Character(key string) CharacterID {
	key = strings.TrimSpace(key)
	if key == "" {
		return CharacterID{}
	}
	return CharacterID(uuid.NewSHA1(characterNS, []byte(key)))
}

func (id CharacterID) IsZero() bool { return id == CharacterID{} }

func (id CharacterID) String() string { return uuid.UUID(id).String() }

func ParseCharacter(s string) (CharacterID, bool) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return CharacterID{}, false
	}
	return CharacterID(u), true
}

func (id CharacterID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *CharacterID) UnmarshalText(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(b); err != nil {
		return err
	}
	*id = CharacterID(u)
	return nil
}

// NewSession returns a random session id handed to the host in WELCOME.
func NewSession() string { return "sess_" + uuid.NewString() }
