package models

import "time"

// BroadcastDescriptor advertises a live class session. At most one descriptor
// per teacher email exists in the shared list; removing it ends the session.
type BroadcastDescriptor struct {
	TeacherEmail  string    `json:"teacher_email"`
	TeacherName   string    `json:"teacher_name,omitempty"`
	Class         string    `json:"class"`
	Section       string    `json:"section,omitempty"`
	Title         string    `json:"title,omitempty"`
	CameraOn      bool      `json:"camera_on"`
	MicOn         bool      `json:"mic_on"`
	ScreenShareOn bool      `json:"screen_share_on"`
	Viewers       []string  `json:"viewers"`
	StartedAt     time.Time `json:"started_at"`
	LastUpdate    time.Time `json:"last_update"`
}

// VisibleTo reports whether a student should see this broadcast in their
// live-class list. A descriptor with no section is class-wide.
func (b BroadcastDescriptor) VisibleTo(v ViewerContext) bool {
	if v.Role != RoleStudent {
		return false
	}
	if b.Class == "" || v.Class != b.Class {
		return false
	}
	if b.Section != "" && v.Section != b.Section {
		return false
	}
	return true
}

// Stale reports whether the heartbeat is older than the cutoff relative to
// now. Stale descriptors are treated as offline when listed.
func (b BroadcastDescriptor) Stale(now time.Time, cutoff time.Duration) bool {
	if cutoff <= 0 {
		return false
	}
	return now.Sub(b.LastUpdate) > cutoff
}
