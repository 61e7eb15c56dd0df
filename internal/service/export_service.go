package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deptsched/timetable-api/internal/dto"
	"github.com/deptsched/timetable-api/internal/models"
	appErrors "github.com/deptsched/timetable-api/pkg/errors"
	"github.com/deptsched/timetable-api/pkg/export"
	"github.com/deptsched/timetable-api/pkg/jobs"
	"github.com/deptsched/timetable-api/pkg/storage"
)

const (
	exportStatusPending   = "PENDING"
	exportStatusCompleted = "COMPLETED"
	exportStatusFailed    = "FAILED"
)

type exportJob struct {
	ID        string
	Request   dto.ExportTimetableRequest
	Status    string
	Filename  string
	Error     string
	CreatedAt time.Time
}

// ExportService renders section timetables into downloadable PDF/CSV
// files through the background queue.
type ExportService struct {
	timetables timetableStore
	sections   sectionReader
	subjects   subjectReader
	labs       labReader
	teachers   teacherReader

	queue     *jobs.Queue
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger

	mu   sync.RWMutex
	jobs map[string]*exportJob
}

// ExportServiceConfig tunes the export worker pool.
type ExportServiceConfig struct {
	WorkerConcurrency int
	WorkerRetries     int
}

// NewExportService wires the export pipeline. Start must be called before
// Enqueue is used.
func NewExportService(
	timetables timetableStore,
	sections sectionReader,
	subjects subjectReader,
	labs labReader,
	teachers teacherReader,
	store *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ExportServiceConfig,
) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExportService{
		timetables: timetables,
		sections:   sections,
		subjects:   subjects,
		labs:       labs,
		teachers:   teachers,
		store:      store,
		signer:     signer,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		validator:  validate,
		logger:     logger,
		jobs:       make(map[string]*exportJob),
	}
	s.queue = jobs.NewQueue("timetable-exports", s.process, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the export workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the export workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// Enqueue registers an export job and hands it to the worker pool.
func (s *ExportService) Enqueue(ctx context.Context, req dto.ExportTimetableRequest) (*dto.ExportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	// Reject before queueing when the document does not exist.
	if _, err := s.timetables.FindBySection(ctx, req.AcademicYear, req.Parity, req.SectionID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found for section")
	}

	job := &exportJob{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    exportStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "export:" + req.Format, Payload: req}); err != nil {
		s.mu.Lock()
		job.Status = exportStatusFailed
		job.Error = err.Error()
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export job")
	}
	return &dto.ExportJobResponse{JobID: job.ID, Status: job.Status}, nil
}

// GetJob reports job state, including a signed download URL once completed.
func (s *ExportService) GetJob(jobID string) (*dto.ExportJobResponse, error) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}

	resp := &dto.ExportJobResponse{JobID: job.ID, Status: job.Status, Error: job.Error}
	if job.Status == exportStatusCompleted {
		url, _, err := s.signer.Generate(job.ID, job.Filename)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
		}
		resp.DownloadURL = url
	}
	return resp, nil
}

// ResolveDownload verifies a signed token and returns the absolute file
// path plus the filename to serve it under.
func (s *ExportService) ResolveDownload(token string) (string, string, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok || job.Status != exportStatusCompleted || job.Filename != relPath {
		return "", "", appErrors.Clone(appErrors.ErrNotFound, "export file not found")
	}
	return s.store.Path(relPath), relPath, nil
}

func (s *ExportService) process(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.ExportTimetableRequest)
	if !ok {
		s.fail(job.ID, "unexpected payload type")
		return nil
	}

	filename, err := s.render(ctx, job.ID, req)
	if err != nil {
		s.fail(job.ID, err.Error())
		return err
	}

	s.mu.Lock()
	if tracked, found := s.jobs[job.ID]; found {
		tracked.Status = exportStatusCompleted
		tracked.Filename = filename
		tracked.Error = ""
	}
	s.mu.Unlock()
	s.logger.Info("export completed",
		zap.String("job_id", job.ID),
		zap.String("section_id", req.SectionID),
		zap.String("format", req.Format))
	return nil
}

func (s *ExportService) fail(jobID, reason string) {
	s.mu.Lock()
	if job, ok := s.jobs[jobID]; ok {
		job.Status = exportStatusFailed
		job.Error = reason
	}
	s.mu.Unlock()
}

func (s *ExportService) render(ctx context.Context, jobID string, req dto.ExportTimetableRequest) (string, error) {
	timetable, err := s.timetables.FindBySection(ctx, req.AcademicYear, req.Parity, req.SectionID)
	if err != nil {
		return "", fmt.Errorf("load timetable: %w", err)
	}

	names, err := s.loadNames(ctx, req.Parity)
	if err != nil {
		return "", err
	}
	sectionName := names.sections[req.SectionID]
	if sectionName == "" {
		sectionName = req.SectionID
	}

	dataset := buildExportDataset(timetable, names)

	var (
		payload []byte
		ext     string
	)
	switch req.Format {
	case "csv":
		payload, err = s.csv.Render(dataset)
		ext = "csv"
	default:
		title := fmt.Sprintf("Timetable %s - %s %s", sectionName, req.AcademicYear, req.Parity)
		payload, err = s.pdf.Render(dataset, title)
		ext = "pdf"
	}
	if err != nil {
		return "", fmt.Errorf("render %s: %w", req.Format, err)
	}

	filename := fmt.Sprintf("timetable_%s_%s.%s", sectionName, jobID[:8], ext)
	if _, err := s.store.Save(filename, payload); err != nil {
		return "", fmt.Errorf("store export: %w", err)
	}
	return filename, nil
}

type exportNames struct {
	sections map[string]string
	subjects map[string]string
	labs     map[string]string
	teachers map[string]string
}

func (s *ExportService) loadNames(ctx context.Context, parity models.Parity) (exportNames, error) {
	names := exportNames{
		sections: map[string]string{},
		subjects: map[string]string{},
		labs:     map[string]string{},
		teachers: map[string]string{},
	}

	sections, err := s.sections.ListByParity(ctx, parity)
	if err != nil {
		return names, fmt.Errorf("load sections: %w", err)
	}
	for _, section := range sections {
		names.sections[section.ID] = section.Name()
	}

	subjects, err := s.subjects.ListByParity(ctx, parity)
	if err != nil {
		return names, fmt.Errorf("load subjects: %w", err)
	}
	for _, subject := range subjects {
		names.subjects[subject.ID] = subject.Name
	}

	labs, err := s.labs.ListByParity(ctx, parity)
	if err != nil {
		return names, fmt.Errorf("load labs: %w", err)
	}
	for _, lab := range labs {
		names.labs[lab.ID] = lab.Name
	}

	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return names, fmt.Errorf("load teachers: %w", err)
	}
	for _, teacher := range teachers {
		names.teachers[teacher.ID] = teacher.FullName
	}
	return names, nil
}

var exportHeaders = []string{"Day", "Start", "End", "Type", "Activity", "Batch", "Teachers", "Room"}

// exportRow keeps the raw minute offsets next to the rendered cells so rows
// sort chronologically regardless of the display format.
type exportRow struct {
	day   models.Day
	start int
	cells map[string]string
}

// buildExportDataset flattens one section document into day-ordered rows,
// theory sessions and lab rounds interleaved chronologically. Times render
// in 12-hour display format; minute offsets stay internal.
func buildExportDataset(timetable *models.Timetable, names exportNames) export.Dataset {
	rows := make([]exportRow, 0, len(timetable.TheorySlots)+len(timetable.LabSlots)*3)

	for _, slot := range timetable.TheorySlots {
		teacher := ""
		if slot.TeacherID != nil {
			teacher = names.teachers[*slot.TeacherID]
		}
		room := ""
		if slot.ClassroomID != nil {
			room = *slot.ClassroomID
		}
		rows = append(rows, exportRow{
			day:   slot.Day,
			start: slot.StartMinute,
			cells: map[string]string{
				"Day":      string(slot.Day),
				"Start":    models.FormatClock12(slot.StartMinute),
				"End":      models.FormatClock12(slot.EndMinute),
				"Type":     "THEORY",
				"Activity": names.subjects[slot.SubjectID],
				"Batch":    "",
				"Teachers": teacher,
				"Room":     room,
			},
		})
	}

	for _, slot := range timetable.LabSlots {
		for _, activity := range slot.Activities {
			teachers := ""
			if activity.Teacher1 != nil {
				teachers = names.teachers[*activity.Teacher1]
			}
			if activity.Teacher2 != nil {
				if teachers != "" {
					teachers += ", "
				}
				teachers += names.teachers[*activity.Teacher2]
			}
			rows = append(rows, exportRow{
				day:   slot.Day,
				start: slot.StartMinute,
				cells: map[string]string{
					"Day":      string(slot.Day),
					"Start":    models.FormatClock12(slot.StartMinute),
					"End":      models.FormatClock12(slot.EndMinute),
					"Type":     fmt.Sprintf("LAB R%d", slot.Round),
					"Activity": names.labs[activity.LabID],
					"Batch":    activity.Batch,
					"Teachers": teachers,
					"Room":     activity.RoomID,
				},
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		di, dj := models.DayIndex(rows[i].day), models.DayIndex(rows[j].day)
		if di != dj {
			return di < dj
		}
		return rows[i].start < rows[j].start
	})

	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.cells)
	}
	return export.Dataset{Headers: exportHeaders, Rows: out}
}
