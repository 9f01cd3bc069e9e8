package models

import (
	"fmt"
	"time"
)

// RecipientType is the closed set of addressing modes a message may carry.
type RecipientType string

const (
	RecipientWholeSchool       RecipientType = "whole_school"
	RecipientAllTeachers       RecipientType = "all_teachers"
	RecipientAllStudents       RecipientType = "all_students"
	RecipientClass             RecipientType = "class"
	RecipientSection           RecipientType = "section"
	RecipientIndividualTeacher RecipientType = "individual_teacher"
	RecipientIndividualStudent RecipientType = "individual_student"
)

// Read state values stored inline on each record.
const (
	StatusUnread = "unread"
	StatusRead   = "read"
)

// Sender roles allowed to produce messages.
const (
	SenderPrincipal = "principal"
	SenderTeacher   = "teacher"
)

// Message is a broadcastable unit shared by announcements, notifications and
// audio messages. Records live as a JSON array under one collection key; the
// addressing fields decide which viewers see each record.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	SenderType string    `json:"sender_type"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	AudioURL   string    `json:"audio_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`

	RecipientType    RecipientType `json:"recipient_type"`
	RecipientClass   string        `json:"recipient_class,omitempty"`
	RecipientSection string        `json:"recipient_section,omitempty"`
	RecipientID      string        `json:"recipient_id,omitempty"`
	RecipientName    string        `json:"recipient_name,omitempty"`

	Status string `json:"status"`
	// Published is only set on announcement-like collections; nil means the
	// collection does not use draft/publish at all.
	Published *bool `json:"published,omitempty"`
}

// ViewerContext is the identity bundle a dashboard presents when asking
// "is this message mine?". Class and Section are only set for students.
type ViewerContext struct {
	Role        string `json:"role"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	PersonID    string `json:"person_id,omitempty"`
	Class       string `json:"class,omitempty"`
	Section     string `json:"section,omitempty"`
}

// Viewer roles.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// NewMessageID derives a collection-unique identifier from the clock, the
// same shape the dashboards have always written.
func NewMessageID(now time.Time) string {
	return fmt.Sprintf("%d", now.UnixMilli())
}

// VisibleTo reports whether the message is addressed to the given viewer.
// It is pure and total: malformed or unknown addressing matches nobody.
// Comparisons are exact, case-sensitive string equality; producers are
// inconsistent about which identity field they populate, so the individual
// rules deliberately try several fields.
func (m Message) VisibleTo(v ViewerContext) bool {
	switch m.RecipientType {
	case RecipientWholeSchool:
		return true
	case RecipientAllTeachers:
		return v.Role == RoleTeacher
	case RecipientAllStudents:
		return v.Role == RoleStudent
	case RecipientClass:
		return v.Role == RoleStudent &&
			m.RecipientClass != "" && v.Class == m.RecipientClass
	case RecipientSection:
		return v.Role == RoleStudent &&
			m.RecipientClass != "" && v.Class == m.RecipientClass &&
			m.RecipientSection != "" && v.Section == m.RecipientSection
	case RecipientIndividualTeacher:
		if v.Role != RoleTeacher {
			return false
		}
		return matchesIdentity(m.RecipientID, v.PersonID, v.Email) ||
			matchesIdentity(m.RecipientName, v.Email, v.DisplayName)
	case RecipientIndividualStudent:
		if v.Role != RoleStudent {
			return false
		}
		return matchesIdentity(m.RecipientID, v.PersonID, v.Email) ||
			matchesIdentity(m.RecipientName, v.DisplayName)
	default:
		return false
	}
}

// Listed reports whether the message should appear in a viewer's feed:
// addressing must match and, when the collection uses the draft flag, the
// record must be published.
func (m Message) Listed(v ViewerContext) bool {
	if m.Published != nil && !*m.Published {
		return false
	}
	return m.VisibleTo(v)
}

// matchesIdentity compares a recipient qualifier against candidate viewer
// fields. Empty values never match, so records missing a required qualifier
// fail closed.
func matchesIdentity(qualifier string, candidates ...string) bool {
	if qualifier == "" {
		return false
	}
	for _, candidate := range candidates {
		if candidate != "" && candidate == qualifier {
			return true
		}
	}
	return false
}

// AllowedFor reports whether a sender role may use this addressing mode.
// Whole-school and staff-wide fan-out stay with the principal.
func (t RecipientType) AllowedFor(senderType string) bool {
	switch senderType {
	case SenderPrincipal:
		switch t {
		case RecipientWholeSchool, RecipientAllTeachers, RecipientAllStudents,
			RecipientClass, RecipientSection,
			RecipientIndividualTeacher, RecipientIndividualStudent:
			return true
		}
	case SenderTeacher:
		switch t {
		case RecipientClass, RecipientSection,
			RecipientIndividualTeacher, RecipientIndividualStudent:
			return true
		}
	}
	return false
}

// MissingQualifier names the first addressing qualifier the record requires
// but does not carry, or "" when the addressing is complete.
func (m Message) MissingQualifier() string {
	switch m.RecipientType {
	case RecipientClass:
		if m.RecipientClass == "" {
			return "recipient_class"
		}
	case RecipientSection:
		if m.RecipientClass == "" {
			return "recipient_class"
		}
		if m.RecipientSection == "" {
			return "recipient_section"
		}
	case RecipientIndividualTeacher, RecipientIndividualStudent:
		if m.RecipientID == "" && m.RecipientName == "" {
			return "recipient_id"
		}
	}
	return ""
}
