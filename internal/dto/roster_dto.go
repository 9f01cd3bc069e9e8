package dto

import "github.com/noah-isme/sma-portal-api/internal/models"

// StudentResponse is the roster row exposed to producer dashboards.
type StudentResponse struct {
	PersonID string `json:"person_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Class    string `json:"class"`
	Section  string `json:"section,omitempty"`
}

// TeacherResponse is the staff roster row exposed to producer dashboards.
type TeacherResponse struct {
	PersonID string `json:"person_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Subject  string `json:"subject,omitempty"`
}

// RosterSeedRequest replaces the roster with the supplied rows.
type RosterSeedRequest struct {
	Students []StudentSeed `json:"students" validate:"dive"`
	Teachers []TeacherSeed `json:"teachers" validate:"dive"`
}

// StudentSeed is one student row in a seed payload.
type StudentSeed struct {
	PersonID string `json:"person_id" validate:"required,max=64"`
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Class    string `json:"class" validate:"required,max=32"`
	Section  string `json:"section" validate:"omitempty,max=32"`
}

// TeacherSeed is one teacher row in a seed payload.
type TeacherSeed struct {
	PersonID string `json:"person_id" validate:"required,max=64"`
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Subject  string `json:"subject" validate:"omitempty,max=128"`
}

// NewStudentResponse converts a model into a DTO.
func NewStudentResponse(student models.Student) StudentResponse {
	return StudentResponse{
		PersonID: student.PersonID,
		Name:     student.Name,
		Email:    student.Email,
		Class:    student.Class,
		Section:  student.Section,
	}
}

// NewStudentResponseSlice converts roster rows into DTOs.
func NewStudentResponseSlice(students []models.Student) []StudentResponse {
	out := make([]StudentResponse, 0, len(students))
	for _, student := range students {
		out = append(out, NewStudentResponse(student))
	}
	return out
}

// NewTeacherResponse converts a model into a DTO.
func NewTeacherResponse(teacher models.Teacher) TeacherResponse {
	return TeacherResponse{
		PersonID: teacher.PersonID,
		Name:     teacher.Name,
		Email:    teacher.Email,
		Subject:  teacher.Subject,
	}
}

// NewTeacherResponseSlice converts roster rows into DTOs.
func NewTeacherResponseSlice(teachers []models.Teacher) []TeacherResponse {
	out := make([]TeacherResponse, 0, len(teachers))
	for _, teacher := range teachers {
		out = append(out, NewTeacherResponse(teacher))
	}
	return out
}
