package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/omenezes/aula-planner-api/internal/models"
	appErrors "github.com/omenezes/aula-planner-api/pkg/errors"
)

type importRepository interface {
	Reconcile(ctx context.Context, userID string, plan models.ReconcilePlan) (*models.ReconcileResult, error)
}

type importInstructorRepository interface {
	FindByName(ctx context.Context, userID, name string) (*models.Instructor, error)
	Create(ctx context.Context, instructor *models.Instructor) error
}

// ImportService turns backup documents and CSV uploads into reconciliation
// plans and applies them. Normalization never aborts the whole import: bad
// records are dropped and reported, good ones still land.
type ImportService struct {
	repo        importRepository
	instructors importInstructorRepository
	cache       *CacheService
	logger      *zap.Logger
}

// NewImportService constructs the service.
func NewImportService(repo importRepository, instructors importInstructorRepository, cache *CacheService, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{repo: repo, instructors: instructors, cache: cache, logger: logger}
}

// RestoreDocument merges a backup document into the user's data.
func (s *ImportService) RestoreDocument(ctx context.Context, userID string, doc models.BackupDocument) (*models.ReconcileResult, error) {
	plan := NormalizeBackup(doc)

	result, err := s.repo.Reconcile(ctx, userID, plan)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply backup")
	}
	result.Merge(plan.Errors)

	s.restoreInstructors(ctx, userID, doc.Instructors, result)

	if s.cache != nil {
		s.cache.InvalidateDashboard(ctx, userID)
	}
	s.logger.Info("backup restored",
		zap.String("user_id", userID),
		zap.Int("classes_created", result.ClassesCreated),
		zap.Int("lessons_created", result.LessonsCreated),
		zap.Int("lessons_skipped", result.LessonsSkipped))
	return result, nil
}

func (s *ImportService) restoreInstructors(ctx context.Context, userID string, instructors []models.BackupInstructor, result *models.ReconcileResult) {
	if s.instructors == nil {
		return
	}
	for _, entry := range instructors {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			continue
		}
		_, err := s.instructors.FindByName(ctx, userID, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			result.Errors = append(result.Errors, fmt.Sprintf("instructor %q: %v", name, err))
			continue
		}
		if err := s.instructors.Create(ctx, &models.Instructor{UserID: userID, Name: name}); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("instructor %q: %v", name, err))
		}
	}
}

// NormalizeBackup flattens a backup document into a reconciliation plan.
// Classes are deduplicated on the trimmed lowercased name; nested lessons
// inherit their parent class keys, flat lessons reference classes through
// the transient id in either of its historical spellings.
func NormalizeBackup(doc models.BackupDocument) models.ReconcilePlan {
	plan := models.ReconcilePlan{}
	seen := make(map[string]int)

	for i, class := range doc.Classes {
		name := strings.TrimSpace(class.Name)
		if name == "" {
			plan.Errors = append(plan.Errors, fmt.Sprintf("class %d: missing name", i+1))
			continue
		}
		norm := models.NormalizeClassName(name)

		keys := []string{}
		if tid := class.TransientID.String(); tid != "" {
			keys = append(keys, tid)
		}

		if idx, ok := seen[norm]; ok {
			plan.Classes[idx].Keys = append(plan.Classes[idx].Keys, keys...)
		} else {
			fullCode, unit := class.FullCode, class.CurricularUnit
			if isBlank(fullCode) || isBlank(unit) {
				legacyCode, legacyUnit := parseLegacyDescription(class.Description)
				if isBlank(fullCode) {
					fullCode = legacyCode
				}
				if isBlank(unit) {
					unit = legacyUnit
				}
			}
			active := true
			if class.Active != nil {
				active = *class.Active
			}
			seen[norm] = len(plan.Classes)
			plan.Classes = append(plan.Classes, models.ReconcileClass{
				Keys:           keys,
				Name:           name,
				FullCode:       fullCode,
				CurricularUnit: unit,
				JournalLink:    class.JournalLink,
				Active:         active,
			})
		}

		for j, raw := range class.Lessons {
			lesson, err := normalizeLesson(raw, append(keys, norm))
			if err != nil {
				plan.Errors = append(plan.Errors, fmt.Sprintf("class %q lesson %d: %v", name, j+1, err))
				continue
			}
			plan.Lessons = append(plan.Lessons, lesson)
		}
	}

	for i, raw := range doc.Lessons {
		var keys []string
		if id := raw.ClassID.String(); id != "" {
			keys = append(keys, id)
		}
		if id := raw.LegacyClassID.String(); id != "" {
			keys = append(keys, id)
		}
		lesson, err := normalizeLesson(raw, keys)
		if err != nil {
			plan.Errors = append(plan.Errors, fmt.Sprintf("lesson %d: %v", i+1, err))
			continue
		}
		plan.Lessons = append(plan.Lessons, lesson)
	}

	return plan
}

func normalizeLesson(raw models.BackupLesson, classKeys []string) (models.ReconcileLesson, error) {
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return models.ReconcileLesson{}, errors.New("missing title")
	}
	date, err := parseLessonDate(raw.Date)
	if err != nil {
		return models.ReconcileLesson{}, err
	}
	return models.ReconcileLesson{
		ClassKeys:    classKeys,
		Title:        title,
		Date:         date,
		Shift:        models.NormalizeShift(raw.Shift),
		Status:       models.NormalizeStatus(raw.Status),
		Sequence:     raw.Sequence,
		Room:         raw.Room,
		BuildingUnit: raw.BuildingUnit,
		StudyBlock:   coalesce(raw.StudyBlock, raw.LegacyBlock),
		Description:  raw.Description,
		Notes:        raw.Notes,
		FilesLink:    coalesce(raw.FilesLink, raw.LegacyLink),
	}, nil
}

// parseLessonDate accepts a bare date or a full timestamp by reading only
// the leading date portion.
func parseLessonDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 10 {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	date, err := time.ParseInLocation("2006-01-02", raw[:10], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return date, nil
}

// parseLegacyDescription recovers class metadata that old backups embedded
// as labelled lines inside the description text.
func parseLegacyDescription(description *string) (fullCode, unit *string) {
	if description == nil {
		return nil, nil
	}
	for _, line := range strings.Split(*description, "\n") {
		line = strings.TrimSpace(line)
		if value, ok := strings.CutPrefix(line, "Turma:"); ok {
			value = strings.TrimSpace(value)
			if value != "" && fullCode == nil {
				fullCode = &value
			}
		} else if value, ok := strings.CutPrefix(line, "Unidade Curricular:"); ok {
			value = strings.TrimSpace(value)
			if value != "" && unit == nil {
				unit = &value
			}
		}
		if fullCode != nil && unit != nil {
			break
		}
	}
	return fullCode, unit
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func coalesce(values ...*string) *string {
	for _, v := range values {
		if !isBlank(v) {
			return v
		}
	}
	return nil
}

var csvRequiredColumns = []string{"turma", "data", "titulo"}

// ImportCSV merges a spreadsheet of lessons into the user's data. The first
// row is the header; names are matched case-insensitively with spaces
// collapsed to underscores, and a UTF-8 BOM is tolerated.
func (s *ImportService) ImportCSV(ctx context.Context, userID string, r io.Reader) (*models.ReconcileResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "empty or unreadable CSV file")
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		columns[normalizeCSVHeader(name)] = i
	}
	for _, required := range csvRequiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("CSV is missing required column %q", required))
		}
	}

	plan := models.ReconcilePlan{}
	seen := make(map[string]bool)

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			plan.Errors = append(plan.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		cell := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		className := cell("turma")
		title := cell("titulo")
		rawDate := cell("data")
		// Rows with a blank required field are skipped without complaint,
		// so padded or half-filled spreadsheets import cleanly.
		if className == "" || title == "" || rawDate == "" {
			continue
		}
		date, err := parseLessonDate(rawDate)
		if err != nil {
			plan.Errors = append(plan.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		norm := models.NormalizeClassName(className)
		if !seen[norm] {
			seen[norm] = true
			plan.Classes = append(plan.Classes, models.ReconcileClass{Name: className, Active: true})
		}

		lesson := models.ReconcileLesson{
			ClassKeys:    []string{norm},
			Title:        title,
			Date:         date,
			Shift:        models.NormalizeShift(cell("turno")),
			Status:       models.NormalizeStatus(cell("status")),
			Room:         optionalCell(cell("sala")),
			BuildingUnit: optionalCell(cell("unidade_predio")),
			StudyBlock:   optionalCell(cell("bloco_estudo")),
			Description:  optionalCell(cell("descricao")),
			Notes:        optionalCell(cell("observacoes")),
			FilesLink:    optionalCell(cell("link_arquivos")),
		}
		if raw := cell("numero_aula"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				lesson.Sequence = &n
			}
		}
		plan.Lessons = append(plan.Lessons, lesson)
	}

	result, err := s.repo.Reconcile(ctx, userID, plan)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply CSV import")
	}
	result.Merge(plan.Errors)

	if s.cache != nil {
		s.cache.InvalidateDashboard(ctx, userID)
	}
	return result, nil
}

func normalizeCSVHeader(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, " ", "_")
}

func optionalCell(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
