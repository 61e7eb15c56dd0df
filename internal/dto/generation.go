package dto

import "github.com/deptsched/timetable-api/internal/models"

// GenerateTimetableRequest starts a full regeneration for one key.
// Seed is optional; non-zero values make tie-breaking reproducible.
type GenerateTimetableRequest struct {
	AcademicYear string        `json:"academicYear" validate:"required"`
	Parity       models.Parity `json:"parity" validate:"required,oneof=ODD EVEN"`
	Seed         int64         `json:"seed"`
}

// SectionResult summarises one section's generation outcome.
type SectionResult struct {
	SectionID   string                     `json:"sectionId"`
	SectionName string                     `json:"sectionName"`
	Metadata    *models.GenerationMetadata `json:"metadata"`
}

// GenerateTimetableResponse reports the pipeline outcome per section.
type GenerateTimetableResponse struct {
	AcademicYear string          `json:"academicYear"`
	Parity       models.Parity   `json:"parity"`
	Seed         int64           `json:"seed"`
	Sections     []SectionResult `json:"sections"`
}

// TimetableQuery filters timetable documents by generation key.
type TimetableQuery struct {
	AcademicYear string        `form:"academicYear" json:"academicYear" validate:"required"`
	Parity       models.Parity `form:"parity" json:"parity" validate:"required,oneof=ODD EVEN"`
}

// ValidateScheduleRequest asks for a conflict report on committed records.
type ValidateScheduleRequest struct {
	AcademicYear string        `json:"academicYear" validate:"required"`
	Parity       models.Parity `json:"parity" validate:"required,oneof=ODD EVEN"`
}

// WorkloadQuery selects the workload report for a generation key.
type WorkloadQuery struct {
	AcademicYear string        `form:"academicYear" json:"academicYear" validate:"required"`
	Parity       models.Parity `form:"parity" json:"parity" validate:"required,oneof=ODD EVEN"`
}

// ExportTimetableRequest queues an export job for one section document.
type ExportTimetableRequest struct {
	SectionID    string        `json:"sectionId" validate:"required"`
	AcademicYear string        `json:"academicYear" validate:"required"`
	Parity       models.Parity `json:"parity" validate:"required,oneof=ODD EVEN"`
	Format       string        `json:"format" validate:"required,oneof=pdf csv"`
}

// ExportJobResponse reports the state of an export job.
type ExportJobResponse struct {
	JobID       string `json:"jobId"`
	Status      string `json:"status"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}
