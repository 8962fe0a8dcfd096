package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
	"sort"

	"skineffects.io/internal/sim/effects"
	"skineffects.io/internal/sim/ids"
)

// stateDigest hashes everything that replay must reproduce: the host mirror,
// every live state, the store and the day's deflower decisions.
func (w *World) stateDigest(frame uint64) string {
	h := sha256.New()
	var tmp [8]byte

	writeU64(h, &tmp, frame)
	if w.loading {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}

	w.digestInstances(h, &tmp)
	w.digestStates(h, &tmp)
	w.digestStore(h, &tmp)
	for _, id := range w.tracker.DeflowerDisabledIDs() {
		h.Write(id[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (w *World) digestInstances(h hash.Hash, tmp *[8]byte) {
	chars := make([]ids.CharacterID, 0, len(w.instances))
	for id := range w.instances {
		chars = append(chars, id)
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i].String() < chars[j].String() })
	writeU64(h, tmp, uint64(len(chars)))
	for _, id := range chars {
		h.Write(id[:])
		writeString(h, tmp, string(w.instances[id]))
		h.Write([]byte{byte(w.tracker.Phase(id))})
	}
}

func (w *World) digestStates(h hash.Hash, tmp *[8]byte) {
	insts := w.tracker.InstanceIDs()
	writeU64(h, tmp, uint64(len(insts)))
	for _, inst := range insts {
		writeString(h, tmp, string(inst))
		st := w.tracker.InstanceState(inst)
		for _, n := range effects.Names {
			writeU64(h, tmp, math.Float64bits(st.Raw(n)))
		}
		writeU64(h, tmp, math.Float64bits(st.TouchRaw()))
		digestFlags(h, tmp, st.Snapshot())
	}
}

func (w *World) digestStore(h hash.Hash, tmp *[8]byte) {
	store := w.tracker.Store()
	writeU64(h, tmp, uint64(store.Len()))
	for _, id := range store.IDs() {
		h.Write(id[:])
		snap, _ := store.Load(id)
		for _, n := range effects.Names {
			writeU64(h, tmp, math.Float64bits(snap.Raw[n]))
		}
		digestFlags(h, tmp, snap)
	}
}

func digestFlags(h hash.Hash, tmp *[8]byte, snap *effects.Snapshot) {
	if snap.DeflowerDisabled {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	// Consumed is sorted by Snapshot.
	for _, m := range snap.Consumed {
		writeString(h, tmp, string(m))
	}
}

func writeU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func writeString(h hash.Hash, tmp *[8]byte, s string) {
	writeU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}
