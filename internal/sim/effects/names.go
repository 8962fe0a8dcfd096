package effects

// Name is a channel name. The set is fixed; see Names.
type Name string

const (
	Drool       Name = "drool"
	Saliva      Name = "saliva"
	Tear        Name = "tear"
	Blood       Name = "blood"
	Bukkake     Name = "bukkake"
	AnalBukkake Name = "analBukkake"
	Sweat       Name = "sweat"
	PussyJuice  Name = "pussyJuice"
	CumInNose   Name = "cumInNose"
	ButtTouch   Name = "buttTouch"
)

// Names lists every channel in a stable order (used for digests and output).
var Names = []Name{
	Drool,
	Saliva,
	Tear,
	Blood,
	Bukkake,
	AnalBukkake,
	Sweat,
	PussyJuice,
	CumInNose,
	ButtTouch,
}

func (n Name) Valid() bool {
	for _, k := range Names {
		if k == n {
			return true
		}
	}
	return false
}

// Marker is a one-shot flag consumed the first time its rule fires.
type Marker string

const (
	MarkerFirstVaginal Marker = "first_vaginal"
	MarkerFirstAnal    Marker = "first_anal"
)

// EventKind is a discrete host event.
type EventKind string

const (
	EventFinishVaginal EventKind = "finish_vaginal"
	EventFinishAnal    EventKind = "finish_anal"
	EventInsertVaginal EventKind = "insert_vaginal"
	EventInsertAnal    EventKind = "insert_anal"
	EventCumInMouth    EventKind = "cum_in_mouth"
	EventKiss          EventKind = "kiss"
	EventGaugeUp       EventKind = "gauge_up"
	EventTouch         EventKind = "touch"
)

// Region is a touch/contact body region as reported by the host.
type Region string

const (
	RegionNone      Region = ""
	RegionButtL     Region = "butt_l"
	RegionButtR     Region = "butt_r"
	RegionLowerBody Region = "lower_body"
	RegionChest     Region = "chest"
	RegionCrotch    Region = "crotch"
	RegionHead      Region = "head"
	RegionCheek     Region = "cheek"
	RegionHand      Region = "hand"
)

// IsButt reports whether contact on r feeds the touch accumulator.
func (r Region) IsButt() bool {
	switch r {
	case RegionButtL, RegionButtR, RegionLowerBody:
		return true
	}
	return false
}
