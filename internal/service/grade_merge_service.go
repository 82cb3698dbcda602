package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/noah-isme/pe-portal-api/internal/ai"
	"github.com/noah-isme/pe-portal-api/internal/models"
	appErrors "github.com/noah-isme/pe-portal-api/pkg/errors"
	"github.com/noah-isme/pe-portal-api/pkg/middleware/requestid"
	"github.com/noah-isme/pe-portal-api/pkg/sanitize"
)

type gradeExtractor interface {
	ExtractGrades(ctx context.Context, img ai.Image) ([]models.ScannedGradeRow, error)
}

type rosterStore interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
	Upsert(ctx context.Context, student *models.Student) error
}

// NormalizeName is the key used to match scanned names against the roster.
// Internal whitespace and punctuation are kept as is.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// MergeRow applies a scanned row onto an existing student. A positive scanned
// score overwrites the slot; zero keeps the stored score, or 0 when there is
// no existing student. The existing student's identity is kept.
func MergeRow(scan models.ScannedGradeRow, existing *models.Student) models.Student {
	var merged models.Student
	if existing != nil {
		merged = *existing
	} else {
		merged.Name = strings.TrimSpace(scan.Name)
	}
	merged.Note1 = mergeScore(scan.Note1, merged.Note1)
	merged.Note2 = mergeScore(scan.Note2, merged.Note2)
	merged.Note3 = mergeScore(scan.Note3, merged.Note3)
	return merged
}

func mergeScore(scanned, stored float64) float64 {
	if scanned > 0 && !math.IsInf(scanned, 0) && !math.IsNaN(scanned) {
		return scanned
	}
	return stored
}

// GradeMergeService reconciles scanned grade sheets into class rosters.
type GradeMergeService struct {
	students  rosterStore
	classes   classLookup
	extractor gradeExtractor
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewGradeMergeService constructs the grade merge service.
func NewGradeMergeService(students rosterStore, classes classLookup, extractor gradeExtractor, metrics *MetricsService, logger *zap.Logger) *GradeMergeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeMergeService{students: students, classes: classes, extractor: extractor, metrics: metrics, logger: logger}
}

// Scan extracts rows from a grade sheet image. Nothing is written; the rows
// are meant to be reviewed before Merge.
func (s *GradeMergeService) Scan(ctx context.Context, img ai.Image) ([]models.ScannedGradeRow, error) {
	if len(img.Data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "image is required")
	}
	start := time.Now()
	rows, err := s.extractor.ExtractGrades(ctx, img)
	s.metrics.ObserveAIRequest("extract_grades", err, time.Since(start))
	if err != nil {
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrInternal.Code {
			return nil, appErrors.Extend(appErrors.ErrExtractionFailed, err, "failed to extract grades")
		}
		return nil, err
	}
	if rows == nil {
		rows = []models.ScannedGradeRow{}
	}
	return rows, nil
}

// Merge applies scanned rows to the roster of classID. Rows are processed in
// order and a failing row does not stop the batch. When any row fails the
// report is still returned together with a PARTIAL_MERGE_FAILURE error.
func (s *GradeMergeService) Merge(ctx context.Context, classID string, rows []models.ScannedGradeRow) (*models.MergeReport, error) {
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one row is required")
	}
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return nil, storeError(err, "class not found", "failed to load class")
	}
	roster, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	index := make(map[string]models.Student, len(roster))
	for _, student := range roster {
		key := NormalizeName(student.Name)
		if _, seen := index[key]; !seen {
			index[key] = student
		}
	}

	log := s.logger.With(zap.String("request_id", requestid.FromContext(ctx)), zap.String("class_id", classID))
	report := &models.MergeReport{}
	for i, row := range rows {
		raw := row.Name
		row.Name = sanitize.PlainText(raw)
		key := NormalizeName(row.Name)
		if key == "" {
			report.Failed = append(report.Failed, models.RowFailure{Index: i, Name: raw, Reason: "name is empty"})
			log.Warn("scanned row skipped", zap.Int("index", i), zap.String("reason", "empty name"))
			continue
		}
		if utf8.RuneCountInString(row.Name) > models.MaxStudentNameLength {
			report.Failed = append(report.Failed, models.RowFailure{Index: i, Name: row.Name, Reason: fmt.Sprintf("name is longer than %d characters", models.MaxStudentNameLength)})
			log.Warn("scanned row skipped", zap.Int("index", i), zap.String("reason", "name too long"))
			continue
		}

		var merged models.Student
		existing, matched := index[key]
		if matched {
			merged = MergeRow(row, &existing)
		} else {
			merged = MergeRow(row, nil)
			merged.ClassID = classID
		}

		if err := s.students.Upsert(ctx, &merged); err != nil {
			report.Failed = append(report.Failed, models.RowFailure{Index: i, Name: row.Name, Reason: err.Error()})
			log.Warn("scanned row not saved", zap.Int("index", i), zap.String("name", row.Name), zap.Error(err))
			continue
		}
		index[key] = merged
		if matched {
			report.Updated++
		} else {
			report.Created++
		}
	}
	s.metrics.RecordMergeRows(report.Created, report.Updated, len(report.Failed))

	refreshed, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		log.Error("roster reload failed after merge", zap.Int("created", report.Created), zap.Int("updated", report.Updated), zap.Error(err))
		report.Roster = []models.StudentView{}
		return report, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
			fmt.Sprintf("grades were merged (%d created, %d updated, %d failed) but the roster could not be reloaded",
				report.Created, report.Updated, len(report.Failed)))
	}
	report.Roster = views(refreshed)

	log.Info("grades merged", zap.Int("created", report.Created), zap.Int("updated", report.Updated), zap.Int("failed", len(report.Failed)))
	if len(report.Failed) > 0 {
		return report, appErrors.Clone(appErrors.ErrPartialMergeFailure,
			fmt.Sprintf("%d of %d scanned rows could not be saved", len(report.Failed), len(rows)))
	}
	return report, nil
}
