package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sma-portal-api/internal/dto"
	"github.com/noah-isme/sma-portal-api/internal/models"
	"github.com/noah-isme/sma-portal-api/internal/repository"
)

// RosterService exposes the student and teacher rosters producer dashboards
// use to populate recipient pickers.
type RosterService interface {
	ListStudents(ctx context.Context, filter repository.StudentFilter) ([]dto.StudentResponse, error)
	ListTeachers(ctx context.Context) ([]dto.TeacherResponse, error)
	Seed(ctx context.Context, payload dto.RosterSeedRequest) (int64, error)
}

type rosterService struct {
	students  repository.StudentRepository
	teachers  repository.TeacherRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewRosterService constructs the roster service.
func NewRosterService(students repository.StudentRepository, teachers repository.TeacherRepository, validate *validator.Validate, logger zerolog.Logger) RosterService {
	return &rosterService{
		students:  students,
		teachers:  teachers,
		validator: validate,
		logger:    logger.With().Str("component", "roster_service").Logger(),
	}
}

func (s *rosterService) ListStudents(ctx context.Context, filter repository.StudentFilter) ([]dto.StudentResponse, error) {
	students, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return dto.NewStudentResponseSlice(students), nil
}

func (s *rosterService) ListTeachers(ctx context.Context) ([]dto.TeacherResponse, error) {
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewTeacherResponseSlice(teachers), nil
}

func (s *rosterService) Seed(ctx context.Context, payload dto.RosterSeedRequest) (int64, error) {
	if err := s.validator.Struct(payload); err != nil {
		return 0, err
	}

	students := make([]models.Student, 0, len(payload.Students))
	for _, seed := range payload.Students {
		students = append(students, models.Student{
			PersonID: seed.PersonID,
			Name:     seed.Name,
			Email:    seed.Email,
			Class:    seed.Class,
			Section:  seed.Section,
		})
	}

	teachers := make([]models.Teacher, 0, len(payload.Teachers))
	for _, seed := range payload.Teachers {
		teachers = append(teachers, models.Teacher{
			PersonID: seed.PersonID,
			Name:     seed.Name,
			Email:    seed.Email,
			Subject:  seed.Subject,
		})
	}

	var affected int64

	count, err := s.students.UpsertBatch(ctx, students)
	if err != nil {
		return affected, err
	}
	affected += count

	count, err = s.teachers.UpsertBatch(ctx, teachers)
	if err != nil {
		return affected, err
	}
	affected += count

	s.logger.Info().Int64("rows", affected).Msg("roster seeded")

	return affected, nil
}
