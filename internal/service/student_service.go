package service

import (
	"context"
	"database/sql"
	"errors"
	"math/big"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/pe-portal-api/internal/models"
	appErrors "github.com/noah-isme/pe-portal-api/pkg/errors"
	"github.com/noah-isme/pe-portal-api/pkg/sanitize"
)

type studentRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Upsert(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type classLookup interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// Average returns the mean of the three scores rounded half away from zero to
// two decimals, e.g. 14, 16, 15 gives "15.00" and 10, 10, 11 gives "10.33".
func Average(s models.Student) string {
	sum := new(big.Rat)
	for _, v := range []float64{s.Note1, s.Note2, s.Note3} {
		r := new(big.Rat)
		if r.SetFloat64(v) == nil {
			continue
		}
		sum.Add(sum, r)
	}
	return sum.Quo(sum, big.NewRat(3, 1)).FloatString(2)
}

// View attaches the derived average to a student.
func View(s models.Student) models.StudentView {
	return models.StudentView{Student: s, Average: Average(s)}
}

func views(students []models.Student) []models.StudentView {
	out := make([]models.StudentView, len(students))
	for i, s := range students {
		out[i] = View(s)
	}
	return out
}

// StudentService handles roster use-cases.
type StudentService struct {
	repo      studentRepository
	classes   classLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, classes classLookup, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// ListByClass returns the roster of a class with averages.
func (s *StudentService) ListByClass(ctx context.Context, classID string) ([]models.StudentView, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return nil, storeError(err, "class not found", "failed to load class")
	}
	students, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return views(students), nil
}

// Get returns one student with its average.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentView, error) {
	if err := checkRecordID(id, "student not found"); err != nil {
		return nil, err
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "student not found", "failed to load student")
	}
	view := View(*student)
	return &view, nil
}

// Save creates or updates a student. IDs carrying the temporary client prefix
// are treated as new students.
func (s *StudentService) Save(ctx context.Context, req models.SaveStudentRequest) (*models.StudentView, error) {
	req.Name = sanitize.PlainText(req.Name)
	if strings.HasPrefix(req.ID, models.TempIDPrefix) {
		req.ID = ""
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "class does not exist")
		}
		return nil, storeError(err, "class not found", "failed to load class")
	}
	if req.ID != "" {
		if err := checkRecordID(req.ID, "student not found"); err != nil {
			return nil, err
		}
		if _, err := s.repo.FindByID(ctx, req.ID); err != nil {
			return nil, storeError(err, "student not found", "failed to load student")
		}
	}

	student := &models.Student{
		ID:      req.ID,
		ClassID: req.ClassID,
		Name:    req.Name,
		Note1:   req.Note1,
		Note2:   req.Note2,
		Note3:   req.Note3,
	}
	if err := s.repo.Upsert(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistFailed.Code, appErrors.ErrPersistFailed.Status, "failed to save student "+req.Name)
	}
	view := View(*student)
	return &view, nil
}

// Delete removes a student.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := checkRecordID(id, "student not found"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, "student not found", "failed to delete student")
	}
	return nil
}
