package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/deptsched/timetable-api/internal/models"
	"github.com/deptsched/timetable-api/internal/repository"
	"github.com/deptsched/timetable-api/pkg/config"
	"github.com/deptsched/timetable-api/pkg/database"
)

// seed imports master data from a directory of CSV files. Files are
// optional; missing ones are skipped. Qualification and capability sets
// use semicolon-separated ID lists.
func main() {
	dir := flag.String("dir", "./seed", "directory containing master data CSV files")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	loader := &seedLoader{
		dir:      *dir,
		sections: repository.NewSectionRepository(db),
		subjects: repository.NewSubjectRepository(db),
		labs:     repository.NewLabRepository(db),
		teachers: repository.NewTeacherRepository(db),
		rooms:    repository.NewRoomRepository(db),
	}
	if err := loader.run(ctx); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	log.Println("seed completed")
}

type seedLoader struct {
	dir      string
	sections *repository.SectionRepository
	subjects *repository.SubjectRepository
	labs     *repository.LabRepository
	teachers *repository.TeacherRepository
	rooms    *repository.RoomRepository
}

func (l *seedLoader) run(ctx context.Context) error {
	steps := []struct {
		file string
		load func(context.Context, string) (int, error)
	}{
		{"sections.csv", l.loadSections},
		{"subjects.csv", l.loadSubjects},
		{"labs.csv", l.loadLabs},
		{"teachers.csv", l.loadTeachers},
		{"classrooms.csv", l.loadClassrooms},
		{"lab_rooms.csv", l.loadLabRooms},
		{"section_subjects.csv", l.loadSectionSubjects},
	}
	for _, step := range steps {
		path := filepath.Join(l.dir, step.file)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			log.Printf("skip %s: not present", step.file)
			continue
		}
		count, err := step.load(ctx, path)
		if err != nil {
			return fmt.Errorf("%s: %w", step.file, err)
		}
		log.Printf("loaded %d records from %s", count, step.file)
	}
	return nil
}

type sectionRow struct {
	ID         string `csv:"id"`
	Semester   int    `csv:"semester"`
	Parity     string `csv:"parity"`
	Label      string `csv:"label"`
	BatchCount int    `csv:"batch_count"`
}

func (l *seedLoader) loadSections(ctx context.Context, path string) (int, error) {
	var rows []sectionRow
	if err := readCSV(path, &rows); err != nil {
		return 0, err
	}
	for _, row := range rows {
		section := &models.Section{
			ID:         row.ID,
			Semester:   row.Semester,
			Parity:     models.Parity(row.Parity),
			Label:      row.Label,
			BatchCount: row.BatchCount,
		}
		if err := l.sections.Create(ctx, section); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

type subjectRow struct {
	ID               string `csv:"id"`
	Code             string `csv:"code"`
	Name             string `csv:"name"`
	Semester         int    `csv:"semester"`
	Parity           string `csv:"parity"`
	WeeklyHours      int    `csv:"weekly_hours"`
	MaxHoursPerDay   int    `csv:"max_hours_per_day"`
	IsProject        bool   `csv:"is_project"`
	RequiresTeacher  bool   `csv:"requires_teacher"`
	HasFixedSchedule bool   `csv:"has_fixed_schedule"`
}

func (l *seedLoader) loadSubjects(ctx context.Context, path string) (int, error) {
	var rows []subjectRow
	if err := readCSV(path, &rows); err != nil {
		return 0, err
	}
	for _, row := range rows {
		subject := &models.Subject{
			ID:               row.ID,
			Code:             row.Code,
			Name:             row.Name,
			Semester:         row.Semester,
			Parity:           models.Parity(row.Parity),
			WeeklyHours:      row.WeeklyHours,
			MaxHoursPerDay:   row.MaxHoursPerDay,
			IsProject:        row.IsProject,
			RequiresTeacher:  row.RequiresTeacher,
			HasFixedSchedule: row.HasFixedSchedule,
		}
		if err := l.subjects.Create(ctx, subject); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

type labRow struct {
	ID                  string `csv:"id"`
	Code                string `csv:"code"`
	Name                string `csv:"name"`
	Semester            int    `csv:"semester"`
	Parity              string `csv:"parity"`
	DurationHours       int    `csv:"duration_hours"`
	RequiresTwoTeachers bool   `csv:"requires_two_teachers"`
}

func (l *seedLoader) loadLabs(ctx context.Context, path string) (int, error) {
	var rows []labRow
	if err := readCSV(path, &rows); err != nil {
		return 0, err
	}
	for _, row := range rows {
		lab := &models.Lab{
			ID:                  row.ID,
			Code:                row.Code,
			Name:                row.Name,
			Semester:            row.Semester,
			Parity:              models.Parity(row.Parity),
			DurationHours:       row.DurationHours,
			RequiresTwoTeachers: row.RequiresTwoTeachers,
		}
		if err := l.labs.Create(ctx, lab); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

type teacherRow struct {
	ID          string `csv:"id"`
	FullName    string `csv:"full_name"`
	Email       string `csv:"email"`
	Rank        string `csv:"rank"`
	OddCeiling  *int   `csv:"odd_ceiling"`
	EvenCeiling *int   `csv:"even_ceiling"`
	Active      bool   `csv:"active"`
	SubjectIDs  string `csv:"subject_ids"`
	LabIDs      string `csv:"lab_ids"`
}

func (l *seedLoader) loadTeachers(ctx context.Context, path string) (int, error) {
	var rows []teacherRow
	if err := readCSV(path, &rows); err != nil {
		return 0, err
	}
	for _, row := range rows {
		teacher := &models.Teacher{
			ID:          row.ID,
			FullName:    row.FullName,
			Email:       row.Email,
			Rank:        models.TeacherRank(row.Rank),
			OddCeiling:  row.OddCeiling,
			EvenCeiling: row.EvenCeiling,
			Active:      row.Active,
		}
		if err := l.teachers.Create(ctx, teacher); err != nil {
			return 0, err
		}
		if err := l.teachers.ReplaceQualifications(ctx, teacher.ID, splitIDs(row.SubjectIDs), splitIDs(row.LabIDs)); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

type classroomRow struct {
	ID       string `csv:"id"`
	Name     string `csv:"name"`
	Capacity int    `csv:"capacity"`
}

func (l *seedLoader) loadClassrooms(ctx context.Context, path string) (int, error) {
	var rows []classroomRow
	if err := readCSV(path, &rows); err != nil {
		return 0, err
	}
	for _, row := range rows {
		room := &models.Classroom{ID: row.ID, Name: row.Name, Capacity: row.Capacity}
		if err := l.rooms.CreateClassroom(ctx, room); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

type labRoomRow struct {
	ID       string `csv:"id"`
	Name     string `csv:"name"`
	Capacity int    `csv:"capacity"`
	LabIDs   string `csv:"lab_ids"`
}

func (l *seedLoader) loadLabRooms(ctx context.Context, path string) (int, error) {
	var rows []labRoomRow
	if err := readCSV(path, &rows); err != nil {
		return 0, err
	}
	for _, row := range rows {
		room := &models.LabRoom{
			ID:       row.ID,
			Name:     row.Name,
			Capacity: row.Capacity,
			LabIDs:   splitIDs(row.LabIDs),
		}
		if err := l.rooms.CreateLabRoom(ctx, room); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

type sectionSubjectRow struct {
	SectionID string `csv:"section_id"`
	SubjectID string `csv:"subject_id"`
	TeacherID string `csv:"teacher_id"`
}

func (l *seedLoader) loadSectionSubjects(ctx context.Context, path string) (int, error) {
	var rows []sectionSubjectRow
	if err := readCSV(path, &rows); err != nil {
		return 0, err
	}
	for _, row := range rows {
		link := &models.SectionSubject{
			SectionID: row.SectionID,
			SubjectID: row.SubjectID,
		}
		if row.TeacherID != "" {
			teacherID := row.TeacherID
			link.TeacherID = &teacherID
		}
		if err := l.subjects.LinkSection(ctx, link); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

func readCSV(path string, out interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.UnmarshalFile(f, out)
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ";")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}
