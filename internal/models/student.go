package models

import "time"

// Student is a roster row used by producer dashboards to populate recipient
// pickers. PersonID is the stable identifier written into recipient_id.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PersonID  string    `gorm:"size:64;uniqueIndex;not null" json:"person_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Class     string    `gorm:"size:32;index;not null" json:"class"`
	Section   string    `gorm:"size:32;index" json:"section"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Teacher is a roster row for staff recipients and broadcast producers.
type Teacher struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PersonID  string    `gorm:"size:64;uniqueIndex;not null" json:"person_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Subject   string    `gorm:"size:128" json:"subject"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ViewerContext builds the identity bundle a student presents to the
// recipient resolver.
func (s Student) ViewerContext() ViewerContext {
	return ViewerContext{
		Role:        RoleStudent,
		Email:       s.Email,
		DisplayName: s.Name,
		PersonID:    s.PersonID,
		Class:       s.Class,
		Section:     s.Section,
	}
}

// ViewerContext builds the identity bundle a teacher presents to the
// recipient resolver.
func (t Teacher) ViewerContext() ViewerContext {
	return ViewerContext{
		Role:        RoleTeacher,
		Email:       t.Email,
		DisplayName: t.Name,
		PersonID:    t.PersonID,
	}
}
