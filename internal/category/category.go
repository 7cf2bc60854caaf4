// Package category defines the record categories the engine can back up and
// restore, together with their static per-category settings.
package category

import "strings"

// Type identifies one backed-up record kind.
type Type int

const (
	Text Type = iota
	Multimedia
	CallLog
	Chat
)

// Unsynced is the watermark sentinel for a category that has never been
// backed up.
const Unsynced int64 = -1

// descriptor holds the static data for one category. Behavior that depends on
// runtime configuration lives in the prefs package; this table never changes.
type descriptor struct {
	name           string
	wire           string
	defaultFolder  string
	folderKey      string
	backupKey      string
	restoreKey     string
	watermarkKey   string
	backupDefault  bool
	restoreDefault bool
	restorable     bool
	minPlatform    int
}

var table = [...]descriptor{
	Text: {
		name:           "text",
		wire:           "TEXT",
		defaultFolder:  "SMS",
		folderKey:      "folder_text",
		backupKey:      "backup_text",
		restoreKey:     "restore_text",
		watermarkKey:   "max_synced_text",
		backupDefault:  true,
		restoreDefault: true,
		restorable:     true,
	},
	Multimedia: {
		name:          "multimedia",
		wire:          "MULTIMEDIA",
		defaultFolder: "SMS",
		folderKey:     "folder_text",
		backupKey:     "backup_multimedia",
		watermarkKey:  "max_synced_multimedia",
		backupDefault: true,
		minPlatform:   5,
	},
	CallLog: {
		name:           "calllog",
		wire:           "CALLLOG",
		defaultFolder:  "Call log",
		folderKey:      "folder_calllog",
		backupKey:      "backup_calllog",
		restoreKey:     "restore_calllog",
		watermarkKey:   "max_synced_calllog",
		restoreDefault: true,
		restorable:     true,
	},
	Chat: {
		name:          "chat",
		wire:          "CHAT",
		defaultFolder: "Chat",
		folderKey:     "folder_chat",
		backupKey:     "backup_chat",
		watermarkKey:  "max_synced_chat",
	},
}

// All returns every category in declaration order. Backup budget distribution
// depends on this order.
func All() []Type {
	return []Type{Text, Multimedia, CallLog, Chat}
}

func (t Type) valid() bool {
	return t >= Text && t <= Chat
}

func (t Type) String() string {
	if !t.valid() {
		return "unknown"
	}
	return table[t].name
}

// WireName is the value written to the datatype header.
func (t Type) WireName() string {
	return table[t].wire
}

// DefaultFolder is the remote folder used when no override is configured.
func (t Type) DefaultFolder() string {
	return table[t].defaultFolder
}

// FolderKey is the preference key holding the folder override.
func (t Type) FolderKey() string {
	return table[t].folderKey
}

// BackupKey is the preference key for the backup-enabled flag.
func (t Type) BackupKey() string {
	return table[t].backupKey
}

// RestoreKey is the preference key for the restore-enabled flag, empty for
// backup-only categories.
func (t Type) RestoreKey() string {
	return table[t].restoreKey
}

// WatermarkKey is the preference key holding the last-synced timestamp.
func (t Type) WatermarkKey() string {
	return table[t].watermarkKey
}

// BackupEnabledByDefault reports the out-of-the-box backup flag.
func (t Type) BackupEnabledByDefault() bool {
	return table[t].backupDefault
}

// RestoreEnabledByDefault reports the out-of-the-box restore flag.
func (t Type) RestoreEnabledByDefault() bool {
	return table[t].restoreDefault
}

// Restorable reports whether records of this category can be written back to
// the local store. Multimedia and chat are backup-only.
func (t Type) Restorable() bool {
	return table[t].restorable
}

// MinPlatform is the minimum platform version required to back up this
// category, 0 when there is no gate.
func (t Type) MinPlatform() int {
	return table[t].minPlatform
}

// ParseWire maps a datatype header value back to a category.
func ParseWire(s string) (Type, bool) {
	for _, t := range All() {
		if strings.EqualFold(table[t].wire, s) {
			return t, true
		}
	}
	return Text, false
}
