package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/deptsched/timetable-api/internal/dto"
	"github.com/deptsched/timetable-api/internal/models"
	appErrors "github.com/deptsched/timetable-api/pkg/errors"
)

type sectionReader interface {
	ListByParity(ctx context.Context, parity models.Parity) ([]models.Section, error)
}

type subjectReader interface {
	ListByParity(ctx context.Context, parity models.Parity) ([]models.Subject, error)
	ListSectionSubjects(ctx context.Context, sectionIDs []string) ([]models.SectionSubject, error)
}

type labReader interface {
	ListByParity(ctx context.Context, parity models.Parity) ([]models.Lab, error)
}

type teacherReader interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
}

type roomReader interface {
	ListClassrooms(ctx context.Context) ([]models.Classroom, error)
	ListLabRooms(ctx context.Context) ([]models.LabRoom, error)
}

type timetableStore interface {
	DeleteByKey(ctx context.Context, exec sqlx.ExtContext, academicYear string, parity models.Parity) error
	InsertAssignments(ctx context.Context, exec sqlx.ExtContext, items []models.LabRoomAssignment) error
	InsertTimetables(ctx context.Context, exec sqlx.ExtContext, items []models.Timetable) error
	ListByKey(ctx context.Context, academicYear string, parity models.Parity) ([]models.Timetable, error)
	FindBySection(ctx context.Context, academicYear string, parity models.Parity, sectionID string) (*models.Timetable, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// TimetableServiceConfig tunes the generation pipeline.
type TimetableServiceConfig struct {
	Seed            int64
	LockTTL         time.Duration
	CacheTTL        time.Duration
	RebalanceBudget int
}

// TimetableService orchestrates the four-stage scheduling pipeline and
// owns persistence of its output documents.
type TimetableService struct {
	sections   sectionReader
	subjects   subjectReader
	labs       labReader
	teachers   teacherReader
	rooms      roomReader
	timetables timetableStore
	tx         txProvider
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        TimetableServiceConfig
}

// NewTimetableService wires scheduler dependencies.
func NewTimetableService(
	sections sectionReader,
	subjects subjectReader,
	labs labReader,
	teachers teacherReader,
	rooms roomReader,
	timetables timetableStore,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	return &TimetableService{
		sections:   sections,
		subjects:   subjects,
		labs:       labs,
		teachers:   teachers,
		rooms:      rooms,
		timetables: timetables,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
	}
}

func generationKey(academicYear string, parity models.Parity) string {
	return fmt.Sprintf("%s:%s", academicYear, parity)
}

// Generate runs the full pipeline for one key and replaces any prior
// records for that key. Shortfalls are reported in the response metadata;
// only missing master data or impossible preconditions abort the run.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}

	key := generationKey(req.AcademicYear, req.Parity)
	lockKey := "timetable:lock:" + key
	acquired, err := s.cache.AcquireLock(ctx, lockKey, s.cfg.LockTTL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire generation lock")
	}
	if !acquired {
		return nil, appErrors.Clone(appErrors.ErrGenerationLocked, "")
	}
	defer func() {
		_ = s.cache.ReleaseLock(context.WithoutCancel(ctx), lockKey)
	}()

	seed := req.Seed
	if seed == 0 {
		seed = s.cfg.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	started := time.Now()
	data, err := s.loadMasterData(ctx, req.Parity)
	if err != nil {
		s.metrics.ObserveGeneration(string(req.Parity), "failed", time.Since(started))
		return nil, err
	}

	state := newGenerationState(req.AcademicYear, req.Parity, seed, data)
	if err := s.runPipeline(state); err != nil {
		s.metrics.ObserveGeneration(string(req.Parity), "failed", time.Since(started))
		return nil, err
	}

	timetables, err := s.assembleDocuments(state)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, state, timetables); err != nil {
		s.metrics.ObserveGeneration(string(req.Parity), "failed", time.Since(started))
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, "timetable:doc:"+key+"*"); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
	s.recordMetrics(state)
	s.metrics.ObserveGeneration(string(req.Parity), "completed", time.Since(started))

	resp := &dto.GenerateTimetableResponse{
		AcademicYear: req.AcademicYear,
		Parity:       req.Parity,
		Seed:         seed,
	}
	for _, section := range state.data.Sections {
		resp.Sections = append(resp.Sections, dto.SectionResult{
			SectionID:   section.ID,
			SectionName: section.Name(),
			Metadata:    state.meta[section.ID],
		})
	}
	s.logger.Info("timetable generated",
		zap.String("academic_year", req.AcademicYear),
		zap.String("parity", string(req.Parity)),
		zap.Int64("seed", seed),
		zap.Int("sections", len(state.data.Sections)),
		zap.Duration("took", time.Since(started)))
	return resp, nil
}

// runPipeline executes the stages strictly in order; every stage reads
// only what earlier stages committed into the run state. Fixed slots are
// committed before the first stage so even lab round placement cannot
// double-book a section against them.
func (s *TimetableService) runPipeline(state *generationState) error {
	state.injectFixedSlots()
	stages := []struct {
		name string
		run  func(*generationState) error
	}{
		{"lab_rooms", newLabRoomAssigner(s.logger).run},
		{"theory", newTheoryScheduler(s.logger).run},
		{"classrooms", newClassroomAssigner(s.logger).run},
		{"lab_teachers", newLabTeacherAssigner(s.logger, s.cfg.RebalanceBudget).run},
	}
	for _, stage := range stages {
		if err := stage.run(state); err != nil {
			typed := appErrors.FromError(err)
			return appErrors.Wrap(err, typed.Code, typed.Status, fmt.Sprintf("stage %s failed", stage.name))
		}
	}
	return nil
}

func (s *TimetableService) loadMasterData(ctx context.Context, parity models.Parity) (masterData, error) {
	var data masterData

	sections, err := s.sections.ListByParity(ctx, parity)
	if err != nil {
		return data, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	if len(sections) == 0 {
		return data, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no sections found for parity %s", parity))
	}
	data.Sections = sections

	subjects, err := s.subjects.ListByParity(ctx, parity)
	if err != nil {
		return data, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	data.Subjects = make(map[string]models.Subject, len(subjects))
	for _, subject := range subjects {
		data.Subjects[subject.ID] = subject
	}

	sectionIDs := make([]string, 0, len(sections))
	for _, section := range sections {
		sectionIDs = append(sectionIDs, section.ID)
	}
	links, err := s.subjects.ListSectionSubjects(ctx, sectionIDs)
	if err != nil {
		return data, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section subjects")
	}
	data.SectionSubjects = make(map[string][]models.SectionSubject)
	for _, link := range links {
		data.SectionSubjects[link.SectionID] = append(data.SectionSubjects[link.SectionID], link)
	}

	if data.Labs, err = s.labs.ListByParity(ctx, parity); err != nil {
		return data, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load labs")
	}
	if data.Teachers, err = s.teachers.ListActive(ctx); err != nil {
		return data, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	if data.Classrooms, err = s.rooms.ListClassrooms(ctx); err != nil {
		return data, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classrooms")
	}
	if data.LabRooms, err = s.rooms.ListLabRooms(ctx); err != nil {
		return data, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab rooms")
	}
	return data, nil
}

func (s *TimetableService) assembleDocuments(state *generationState) ([]models.Timetable, error) {
	timetables := make([]models.Timetable, 0, len(state.data.Sections))
	for _, section := range state.data.Sections {
		meta := state.sectionMeta(section.ID)
		meta.GeneratedAt = time.Now().UTC()
		meta.Seed = state.seed
		meta.RecordSuccessRates()

		theoryJSON, err := json.Marshal(state.theorySlots[section.ID])
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode theory slots")
		}
		labJSON, err := json.Marshal(state.labSlots[section.ID])
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode lab slots")
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode generation metadata")
		}

		timetables = append(timetables, models.Timetable{
			AcademicYear: state.year,
			Semester:     section.Semester,
			Parity:       state.parity,
			SectionID:    section.ID,
			TheoryJSON:   types.JSONText(theoryJSON),
			LabJSON:      types.JSONText(labJSON),
			Meta:         types.JSONText(metaJSON),
			TheorySlots:  state.theorySlots[section.ID],
			LabSlots:     state.labSlots[section.ID],
			Metadata:     meta,
		})
	}
	return timetables, nil
}

// persist replaces all records for the key in one transaction: full
// regeneration, never incremental patching.
func (s *TimetableService) persist(ctx context.Context, state *generationState, timetables []models.Timetable) error {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.timetables.DeleteByKey(ctx, tx, state.year, state.parity); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete prior records")
		return err
	}
	if err = s.timetables.InsertAssignments(ctx, tx, state.roomAssignments); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert lab room assignments")
		return err
	}
	if err = s.timetables.InsertTimetables(ctx, tx, timetables); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert timetables")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit generation transaction")
		return err
	}
	return nil
}

func (s *TimetableService) recordMetrics(state *generationState) {
	understaffed := 0
	for _, meta := range state.meta {
		s.metrics.RecordStageShortfalls("lab_rooms", meta.LabRooms.Failed)
		s.metrics.RecordStageShortfalls("theory", meta.Theory.Failed)
		s.metrics.RecordStageShortfalls("classrooms", meta.Classrooms.Failed)
		understaffed += meta.BatchesOneTeacher + meta.BatchesZeroTeachers
	}
	s.metrics.RecordUnderstaffedBatches(understaffed)
}

// List returns every timetable document for a key, read-through cached.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableQuery) ([]models.Timetable, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "academicYear and parity are required")
	}
	cacheKey := "timetable:doc:" + generationKey(query.AcademicYear, query.Parity)

	var cached []models.Timetable
	if hit, _ := s.cache.GetJSON(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	timetables, err := s.timetables.ListByKey(ctx, query.AcademicYear, query.Parity)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	if err := s.cache.SetJSON(ctx, cacheKey, timetables, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("cache store failed", zap.String("key", cacheKey), zap.Error(err))
	}
	return timetables, nil
}

// GetBySection returns one section's document for a key.
func (s *TimetableService) GetBySection(ctx context.Context, query dto.TimetableQuery, sectionID string) (*models.Timetable, error) {
	if sectionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section id is required")
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "academicYear and parity are required")
	}
	timetable, err := s.timetables.FindBySection(ctx, query.AcademicYear, query.Parity, sectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found for section")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return timetable, nil
}

// Workload returns the teacher workload report recorded by the last run.
func (s *TimetableService) Workload(ctx context.Context, query dto.WorkloadQuery) ([]models.TeacherWorkload, error) {
	timetables, err := s.timetables.ListByKey(ctx, query.AcademicYear, query.Parity)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetables")
	}
	if len(timetables) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no timetables found for the requested key")
	}
	// The workload report is identical across a run's documents; any one
	// section's metadata carries it.
	for _, tt := range timetables {
		if tt.Metadata != nil && len(tt.Metadata.Workload) > 0 {
			return tt.Metadata.Workload, nil
		}
	}
	return nil, nil
}
