package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"skineffects.io/internal/persistence/snapshot"
)

type DayArchiveMeta struct {
	Day         int    `json:"day"`
	EndFrame    uint64 `json:"end_frame"`
	SessionID   string `json:"session_id"`
	Entries     int    `json:"entries"`
	DeflowerOff int    `json:"deflower_off"`
	Snapshot    string `json:"snapshot"`
	CreatedAt   string `json:"created_at"`
}

// ArchiveDayStore writes a day-end store export into
// `worldDir/archives/<session>/day_<NNN>/` next to a meta.json.
func ArchiveDayStore(worldDir string, snap snapshot.StoreV1) (archivedPath string, err error) {
	if snap.Day <= 0 {
		return "", fmt.Errorf("archive: day must be > 0, got %d", snap.Day)
	}
	session := snap.Header.SessionID
	if session == "" {
		session = "unknown"
	}
	archiveDir := filepath.Join(worldDir, "archives", session, fmt.Sprintf("day_%03d", snap.Day))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", err
	}

	dst := filepath.Join(archiveDir, fmt.Sprintf("%d.store.zst", snap.Header.Frame))
	if err := snapshot.WriteSnapshot(dst, snap); err != nil {
		return "", err
	}

	meta := DayArchiveMeta{
		Day:         snap.Day,
		EndFrame:    snap.Header.Frame,
		SessionID:   snap.Header.SessionID,
		Entries:     len(snap.Entries),
		DeflowerOff: len(snap.DeflowerOff),
		Snapshot:    filepath.Base(dst),
		CreatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}
	return dst, nil
}
