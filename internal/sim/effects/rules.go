package effects

// Rule is one row of the event table: an event raises Channel by Levels per
// unit of magnitude.
type Rule struct {
	Channel Name
	Levels  float64
	// Marker gates the row: it fires only for events flagged first and only
	// while the marker is unconsumed. Firing consumes it.
	Marker Marker
	// Deflower rows are additionally suppressed while DeflowerDisabled is set,
	// and set it once they fire.
	Deflower bool
}

type ruleKey struct {
	kind   EventKind
	region Region
}

// rules is the only place that says which event changes which channel by how much.
var rules = map[ruleKey][]Rule{
	{kind: EventFinishVaginal}: {
		{Channel: Bukkake, Levels: 1},
	},
	{kind: EventFinishAnal}: {
		{Channel: AnalBukkake, Levels: 1},
	},
	{kind: EventInsertVaginal}: {
		{Channel: PussyJuice, Levels: 1},
		{Channel: Blood, Levels: 1, Marker: MarkerFirstVaginal, Deflower: true},
		{Channel: Tear, Levels: 1, Marker: MarkerFirstVaginal, Deflower: true},
	},
	{kind: EventInsertAnal}: {
		{Channel: Tear, Levels: 1, Marker: MarkerFirstAnal},
	},
	{kind: EventCumInMouth}: {
		{Channel: Drool, Levels: 1},
		{Channel: CumInNose, Levels: 1},
	},
	{kind: EventKiss}: {
		{Channel: Saliva, Levels: 1},
	},
	{kind: EventGaugeUp}: {
		{Channel: Sweat, Levels: 0.1},
		{Channel: PussyJuice, Levels: 0.1},
	},
	{kind: EventTouch, region: RegionButtL}: {
		{Channel: ButtTouch, Levels: 1},
	},
	{kind: EventTouch, region: RegionButtR}: {
		{Channel: ButtTouch, Levels: 1},
	},
	{kind: EventTouch, region: RegionCrotch}: {
		{Channel: PussyJuice, Levels: 0.5},
	},
}

// RulesFor returns a copy of the table rows for an event. Region only matters
// for touch events. Unknown events have no rows.
func RulesFor(kind EventKind, region Region) []Rule {
	if kind != EventTouch {
		region = RegionNone
	}
	rs := rules[ruleKey{kind: kind, region: region}]
	out := make([]Rule, len(rs))
	copy(out, rs)
	return out
}

// KnownEvent reports whether kind is part of the event vocabulary.
func KnownEvent(kind EventKind) bool {
	switch kind {
	case EventFinishVaginal, EventFinishAnal, EventInsertVaginal, EventInsertAnal,
		EventCumInMouth, EventKiss, EventGaugeUp, EventTouch:
		return true
	}
	return false
}
