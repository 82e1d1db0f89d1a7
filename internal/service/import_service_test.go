package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omenezes/aula-planner-api/internal/models"
)

type importRepoStub struct {
	plans  []models.ReconcilePlan
	result *models.ReconcileResult
	err    error
}

func (s *importRepoStub) Reconcile(ctx context.Context, userID string, plan models.ReconcilePlan) (*models.ReconcileResult, error) {
	s.plans = append(s.plans, plan)
	if s.result != nil {
		return s.result, s.err
	}
	return &models.ReconcileResult{}, s.err
}

func strPtr(s string) *string { return &s }

func TestNormalizeBackupLegacyDescriptionFallback(t *testing.T) {
	doc := models.BackupDocument{
		Classes: []models.BackupClass{{
			Name:        "TEC INFO 2026",
			Description: strPtr("Turma: ABC123\nUnidade Curricular: Algoritmos"),
		}},
	}

	plan := NormalizeBackup(doc)

	require.Len(t, plan.Classes, 1)
	require.NotNil(t, plan.Classes[0].FullCode)
	assert.Equal(t, "ABC123", *plan.Classes[0].FullCode)
	require.NotNil(t, plan.Classes[0].CurricularUnit)
	assert.Equal(t, "Algoritmos", *plan.Classes[0].CurricularUnit)
	assert.True(t, plan.Classes[0].Active)
}

func TestNormalizeBackupLegacyDescriptionFirstMatchWins(t *testing.T) {
	doc := models.BackupDocument{
		Classes: []models.BackupClass{{
			Name:        "TEC INFO 2026",
			Description: strPtr("Turma: ABC123\nTurma: XYZ999\nUnidade Curricular: Algoritmos\nUnidade Curricular: Redes"),
		}},
	}

	plan := NormalizeBackup(doc)

	require.Len(t, plan.Classes, 1)
	require.NotNil(t, plan.Classes[0].FullCode)
	assert.Equal(t, "ABC123", *plan.Classes[0].FullCode)
	require.NotNil(t, plan.Classes[0].CurricularUnit)
	assert.Equal(t, "Algoritmos", *plan.Classes[0].CurricularUnit)
}

func TestNormalizeBackupStructuredFieldsWinOverDescription(t *testing.T) {
	doc := models.BackupDocument{
		Classes: []models.BackupClass{{
			Name:        "TEC INFO 2026",
			FullCode:    strPtr("REAL456"),
			Description: strPtr("Turma: OLD123"),
		}},
	}

	plan := NormalizeBackup(doc)

	require.Len(t, plan.Classes, 1)
	assert.Equal(t, "REAL456", *plan.Classes[0].FullCode)
}

func TestNormalizeBackupDeduplicatesClassesByName(t *testing.T) {
	doc := models.BackupDocument{
		Classes: []models.BackupClass{
			{TransientID: "1", Name: "Tec Info 2026"},
			{TransientID: "2", Name: "  tec info 2026 "},
		},
	}

	plan := NormalizeBackup(doc)

	require.Len(t, plan.Classes, 1)
	// Both transient ids still resolve to the merged class.
	assert.ElementsMatch(t, []string{"1", "2"}, plan.Classes[0].Keys)
}

func TestNormalizeBackupNestedLessonsInheritClassKeys(t *testing.T) {
	doc := models.BackupDocument{
		Classes: []models.BackupClass{{
			TransientID: "7",
			Name:        "Turma A",
			Lessons: []models.BackupLesson{{
				Title: "Aula 1",
				Date:  "2026-03-02T00:00:00",
				Shift: "Manhã",
			}},
		}},
	}

	plan := NormalizeBackup(doc)

	require.Len(t, plan.Lessons, 1)
	assert.Equal(t, []string{"7", "turma a"}, plan.Lessons[0].ClassKeys)
	assert.Equal(t, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), plan.Lessons[0].Date)
	assert.Equal(t, models.ShiftMorning, plan.Lessons[0].Shift)
}

func TestNormalizeBackupLegacyLessonSpellings(t *testing.T) {
	doc := models.BackupDocument{
		Lessons: []models.BackupLesson{{
			LegacyClassID: "3",
			Title:         "Aula legada",
			Date:          "2025-11-10",
			Shift:         "qualquer coisa",
			Status:        "",
			LegacyBlock:   strPtr("Bloco 2"),
			LegacyLink:    strPtr("https://drive.example/file"),
		}},
	}

	plan := NormalizeBackup(doc)

	require.Len(t, plan.Lessons, 1)
	lesson := plan.Lessons[0]
	assert.Equal(t, []string{"3"}, lesson.ClassKeys)
	assert.Equal(t, models.ShiftEvening, lesson.Shift)
	assert.Equal(t, models.StatusPlanning, lesson.Status)
	require.NotNil(t, lesson.StudyBlock)
	assert.Equal(t, "Bloco 2", *lesson.StudyBlock)
	require.NotNil(t, lesson.FilesLink)
	assert.Equal(t, "https://drive.example/file", *lesson.FilesLink)
}

func TestNormalizeBackupCollectsRecordErrors(t *testing.T) {
	doc := models.BackupDocument{
		Classes: []models.BackupClass{{Name: "   "}},
		Lessons: []models.BackupLesson{
			{Title: "Sem data", Date: "ontem"},
			{Title: "", Date: "2026-01-01"},
		},
	}

	plan := NormalizeBackup(doc)

	assert.Empty(t, plan.Classes)
	assert.Empty(t, plan.Lessons)
	assert.Len(t, plan.Errors, 3)
}

func TestImportCSVNormalizesHeadersAndRows(t *testing.T) {
	repo := &importRepoStub{}
	svc := NewImportService(repo, nil, nil, nil)

	csv := "\uFEFFTurma,Data,Titulo,Turno,Status,Numero Aula\n" +
		"TEC INFO,2026-03-02,Aula 1,Manhã,Pronta,1\n" +
		"TEC INFO,2026-03-04,Aula 2,,invalido,\n"

	result, err := svc.ImportCSV(context.Background(), "user-1", strings.NewReader(csv))
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Len(t, repo.plans, 1)
	plan := repo.plans[0]
	require.Len(t, plan.Classes, 1)
	assert.Equal(t, "TEC INFO", plan.Classes[0].Name)

	require.Len(t, plan.Lessons, 2)
	assert.Equal(t, models.ShiftMorning, plan.Lessons[0].Shift)
	assert.Equal(t, models.StatusReady, plan.Lessons[0].Status)
	require.NotNil(t, plan.Lessons[0].Sequence)
	assert.Equal(t, 1, *plan.Lessons[0].Sequence)

	// Missing and invalid enums coerce instead of erroring.
	assert.Equal(t, models.ShiftEvening, plan.Lessons[1].Shift)
	assert.Equal(t, models.StatusPlanning, plan.Lessons[1].Status)
}

func TestImportCSVReportsRowErrorsWithLineNumbers(t *testing.T) {
	repo := &importRepoStub{}
	svc := NewImportService(repo, nil, nil, nil)

	csv := "turma,data,titulo\n" +
		"TEC INFO,not-a-date,Aula 1\n" +
		"TEC INFO,2026-13-45,Aula 2\n" +
		"TEC INFO,2026-03-02,Aula 3\n"

	result, err := svc.ImportCSV(context.Background(), "user-1", strings.NewReader(csv))
	require.NoError(t, err)

	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "line 2")
	assert.Contains(t, result.Errors[1], "line 3")

	require.Len(t, repo.plans, 1)
	assert.Len(t, repo.plans[0].Lessons, 1)
}

func TestImportCSVSkipsRowsMissingRequiredFields(t *testing.T) {
	repo := &importRepoStub{}
	svc := NewImportService(repo, nil, nil, nil)

	csv := "turma,data,titulo\n" +
		",2026-03-02,Aula sem turma\n" +
		"TEC INFO,,Aula sem data\n" +
		"TEC INFO,2026-03-02,\n" +
		",,\n" +
		"TEC INFO,2026-03-02,Aula completa\n"

	result, err := svc.ImportCSV(context.Background(), "user-1", strings.NewReader(csv))
	require.NoError(t, err)

	// Half-filled rows drop out quietly; only complete rows reach the plan.
	assert.Empty(t, result.Errors)
	require.Len(t, repo.plans, 1)
	require.Len(t, repo.plans[0].Lessons, 1)
	assert.Equal(t, "Aula completa", repo.plans[0].Lessons[0].Title)
}

func TestImportCSVRejectsMissingRequiredColumn(t *testing.T) {
	svc := NewImportService(&importRepoStub{}, nil, nil, nil)

	_, err := svc.ImportCSV(context.Background(), "user-1", strings.NewReader("turma,titulo\nA,B\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data")
}
