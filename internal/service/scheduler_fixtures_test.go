package service

import (
	"github.com/deptsched/timetable-api/internal/models"
)

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func fixtureSection(id string, semester int, label string, batches int) models.Section {
	return models.Section{
		ID:         id,
		Semester:   semester,
		Parity:     models.ParityForSemester(semester),
		Label:      label,
		BatchCount: batches,
	}
}

func fixtureSubject(id, code string, semester, weekly, maxPerDay int) models.Subject {
	return models.Subject{
		ID:              id,
		Code:            code,
		Name:            code,
		Semester:        semester,
		Parity:          models.ParityForSemester(semester),
		WeeklyHours:     weekly,
		MaxHoursPerDay:  maxPerDay,
		RequiresTeacher: true,
	}
}

func fixtureLab(id, code string, semester int, twoTeachers bool) models.Lab {
	return models.Lab{
		ID:                  id,
		Code:                code,
		Name:                code,
		Semester:            semester,
		Parity:              models.ParityForSemester(semester),
		DurationHours:       2,
		RequiresTwoTeachers: twoTeachers,
	}
}

func fixtureLabRoom(id, name string, labIDs ...string) models.LabRoom {
	return models.LabRoom{ID: id, Name: name, Capacity: 30, LabIDs: labIDs}
}

func fixtureTeacher(id string, rank models.TeacherRank, labIDs ...string) models.Teacher {
	return models.Teacher{
		ID:       id,
		FullName: id,
		Email:    id + "@dept.test",
		Rank:     rank,
		Active:   true,
		LabIDs:   labIDs,
	}
}

func fixtureState(data masterData) *generationState {
	return newGenerationState("2026/2027", models.ParityOdd, 42, data)
}

// threeBatchData is the canonical small scenario: one section of three
// batches, three labs, three rooms each equipped for everything.
func threeBatchData() masterData {
	labs := []models.Lab{
		fixtureLab("lab-ds", "DS", 3, true),
		fixtureLab("lab-os", "OS", 3, true),
		fixtureLab("lab-cn", "CN", 3, true),
	}
	return masterData{
		Sections: []models.Section{fixtureSection("sec-3a", 3, "A", 3)},
		Subjects: map[string]models.Subject{},
		SectionSubjects: map[string][]models.SectionSubject{
			"sec-3a": {},
		},
		Labs: labs,
		LabRooms: []models.LabRoom{
			fixtureLabRoom("room-1", "Lab Room 1", "lab-ds", "lab-os", "lab-cn"),
			fixtureLabRoom("room-2", "Lab Room 2", "lab-ds", "lab-os", "lab-cn"),
			fixtureLabRoom("room-3", "Lab Room 3", "lab-ds", "lab-os", "lab-cn"),
		},
	}
}
