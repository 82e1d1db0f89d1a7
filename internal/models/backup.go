package models

import (
	"encoding/json"
	"time"
)

// BackupDocument is the JSON shape exchanged with the cloud backup folder.
// Exports nest lessons inside their class; restore payloads may instead
// carry a flat lesson list referencing classes by a transient id.
type BackupDocument struct {
	Email       string             `json:"email"`
	Name        string             `json:"nome"`
	Classes     []BackupClass      `json:"turmas"`
	Lessons     []BackupLesson     `json:"aulas,omitempty"`
	Instructors []BackupInstructor `json:"professores_adjuntos,omitempty"`
}

// BackupClass carries one class record. The transient id only matters while
// reconciling a restore payload; exports omit it.
type BackupClass struct {
	TransientID    json.Number    `json:"id,omitempty"`
	Name           string         `json:"nome"`
	FullCode       *string        `json:"codigo_completo"`
	CurricularUnit *string        `json:"unidade_curricular"`
	JournalLink    *string        `json:"link_diario"`
	Active         *bool          `json:"ativa"`
	Description    *string        `json:"descricao,omitempty"`
	Lessons        []BackupLesson `json:"aulas,omitempty"`
}

// BackupLesson carries one lesson record. Several fields accept a legacy
// camelCase spelling kept for compatibility with older backup files.
type BackupLesson struct {
	ClassID       json.Number `json:"turma_id,omitempty"`
	LegacyClassID json.Number `json:"turmaId,omitempty"`

	Title        string  `json:"titulo"`
	Date         string  `json:"data"`
	Shift        string  `json:"turno"`
	Status       string  `json:"status"`
	Description  *string `json:"descricao"`
	Room         *string `json:"sala"`
	BuildingUnit *string `json:"unidade_predio"`
	StudyBlock   *string `json:"bloco_estudo"`
	LegacyBlock  *string `json:"blocoEstudo,omitempty"`
	Sequence     *int    `json:"numero_aula"`
	Notes        *string `json:"observacoes"`
	FilesLink    *string `json:"link_arquivos"`
	LegacyLink   *string `json:"linkDrive,omitempty"`

	InstructorName *string `json:"ministrante_nome,omitempty"`
}

// BackupInstructor carries one adjunct instructor record.
type BackupInstructor struct {
	ID   json.Number `json:"id,omitempty"`
	Name string      `json:"nome"`
}

// ReconcileClass is a normalized class record ready for reconciliation.
// Keys lists every transient id the backup used for this class; duplicate
// class entries are merged during normalization and keep all their keys.
type ReconcileClass struct {
	Keys           []string
	Name           string
	FullCode       *string
	CurricularUnit *string
	JournalLink    *string
	Active         bool
}

// ReconcileLesson is a normalized lesson record ready for reconciliation.
// ClassKeys lists the candidate transient keys in resolution order.
type ReconcileLesson struct {
	ClassKeys    []string
	Title        string
	Date         time.Time
	Shift        Shift
	Status       LessonStatus
	Sequence     *int
	Room         *string
	BuildingUnit *string
	StudyBlock   *string
	Description  *string
	Notes        *string
	FilesLink    *string
}

// ReconcilePlan is the normalized unit of work handed to the import
// repository. Errors collects records dropped during normalization.
type ReconcilePlan struct {
	Classes []ReconcileClass
	Lessons []ReconcileLesson
	Errors  []string
}

// ReconcileResult reports what one reconciliation run did.
type ReconcileResult struct {
	ClassesCreated int      `json:"classes_created"`
	ClassesMatched int      `json:"classes_matched"`
	LessonsCreated int      `json:"lessons_created"`
	LessonsSkipped int      `json:"lessons_skipped"`
	Errors         []string `json:"errors,omitempty"`
}

// Merge folds normalization errors into the repository result.
func (r *ReconcileResult) Merge(errs []string) {
	r.Errors = append(r.Errors, errs...)
}

// SyncReport describes the outcome of the login-time backup scan.
type SyncReport struct {
	Performed  bool   `json:"performed"`
	BackupName string `json:"backup_name,omitempty"`
}
