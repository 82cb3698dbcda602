package service

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/noah-isme/pe-portal-api/internal/ai"
	"github.com/noah-isme/pe-portal-api/internal/models"
	appErrors "github.com/noah-isme/pe-portal-api/pkg/errors"
	"github.com/noah-isme/pe-portal-api/pkg/export"
	"github.com/noah-isme/pe-portal-api/pkg/sanitize"
)

type nameExtractor interface {
	ExtractNames(ctx context.Context, img ai.Image) ([]string, error)
}

type rosterRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportFormat selects the roster export document type.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// RosterExport is a rendered roster document.
type RosterExport struct {
	FileName    string
	ContentType string
	Data        []byte
}

// RosterService imports names into a roster from a picture and exports the
// roster with averages.
type RosterService struct {
	students  rosterStore
	classes   classLookup
	extractor nameExtractor
	renderers map[ExportFormat]rosterRenderer
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewRosterService constructs the roster service with CSV and PDF renderers.
func NewRosterService(students rosterStore, classes classLookup, extractor nameExtractor, metrics *MetricsService, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		students:  students,
		classes:   classes,
		extractor: extractor,
		renderers: map[ExportFormat]rosterRenderer{
			ExportCSV: export.NewCSVExporter(),
			ExportPDF: export.NewPDFExporter(),
		},
		metrics: metrics,
		logger:  logger,
	}
}

// ImportNames extracts names from img and creates a zero-score student for
// every name not already on the roster. Names repeated in the picture are
// created once.
func (s *RosterService) ImportNames(ctx context.Context, classID string, img ai.Image) (*models.ImportReport, error) {
	if len(img.Data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "image is required")
	}
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return nil, storeError(err, "class not found", "failed to load class")
	}

	start := time.Now()
	names, err := s.extractor.ExtractNames(ctx, img)
	s.metrics.ObserveAIRequest("extract_names", err, time.Since(start))
	if err != nil {
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrInternal.Code {
			return nil, appErrors.Extend(appErrors.ErrExtractionFailed, err, "failed to extract names")
		}
		return nil, err
	}

	roster, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	known := make(map[string]struct{}, len(roster))
	for _, student := range roster {
		known[NormalizeName(student.Name)] = struct{}{}
	}

	report := &models.ImportReport{Created: []models.Student{}}
	for i, raw := range names {
		name := sanitize.PlainText(raw)
		key := NormalizeName(name)
		if key == "" {
			continue
		}
		if utf8.RuneCountInString(name) > models.MaxStudentNameLength {
			report.Failed = append(report.Failed, models.RowFailure{Index: i, Name: name, Reason: "name is longer than " + strconv.Itoa(models.MaxStudentNameLength) + " characters"})
			continue
		}
		if _, dup := known[key]; dup {
			report.Skipped = append(report.Skipped, name)
			continue
		}
		student := models.Student{ClassID: classID, Name: name}
		if err := s.students.Upsert(ctx, &student); err != nil {
			report.Failed = append(report.Failed, models.RowFailure{Index: i, Name: name, Reason: err.Error()})
			s.logger.Warn("imported name not saved", zap.String("class_id", classID), zap.String("name", name), zap.Error(err))
			continue
		}
		known[key] = struct{}{}
		report.Created = append(report.Created, student)
	}

	refreshed, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		s.logger.Error("roster reload failed after import", zap.String("class_id", classID), zap.Int("created", len(report.Created)), zap.Error(err))
		report.Roster = []models.StudentView{}
		return report, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
			strconv.Itoa(len(report.Created))+" names were imported but the roster could not be reloaded")
	}
	report.Roster = views(refreshed)

	if len(report.Failed) > 0 {
		return report, appErrors.Clone(appErrors.ErrPartialMergeFailure,
			strconv.Itoa(len(report.Failed))+" imported names could not be saved")
	}
	return report, nil
}

// ExportRoster renders the roster of classID with averages as CSV or PDF.
func (s *RosterService) ExportRoster(ctx context.Context, classID string, format ExportFormat) (*RosterExport, error) {
	if format == "" {
		format = ExportCSV
	}
	renderer, ok := s.renderers[ExportFormat(strings.ToLower(string(format)))]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, storeError(err, "class not found", "failed to load class")
	}
	students, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := export.Dataset{
		Title:   "Grades - " + class.Name,
		Headers: []string{"Name", "Note 1", "Note 2", "Note 3", "Average"},
		Rows:    make([][]string, 0, len(students)),
	}
	for _, student := range students {
		dataset.Rows = append(dataset.Rows, []string{
			student.Name,
			formatScore(student.Note1),
			formatScore(student.Note2),
			formatScore(student.Note3),
			Average(student),
		})
	}

	data, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	return &RosterExport{
		FileName:    exportFileName(class.Name) + "." + renderer.Extension(),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func exportFileName(className string) string {
	var b strings.Builder
	b.WriteString("grades-")
	for _, r := range strings.ToLower(strings.TrimSpace(className)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.TrimRight(b.String(), "-")
}
