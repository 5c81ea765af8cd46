package models

// EducationLevel is the coarse category used for pricing and roster
// consistency checks.
type EducationLevel string

const (
	LevelSD          EducationLevel = "sd"
	LevelSMP         EducationLevel = "smp"
	LevelSMA         EducationLevel = "sma"
	LevelUniversitas EducationLevel = "universitas"
	LevelUmum        EducationLevel = "umum"
)

// Label returns the human-readable category name shown to participants.
func (l EducationLevel) Label() string {
	switch l {
	case LevelSD:
		return "Sekolah Dasar"
	case LevelSMP:
		return "Sekolah Menengah Pertama"
	case LevelSMA:
		return "Sekolah Menengah Atas"
	case LevelUniversitas:
		return "Mahasiswa"
	case LevelUmum:
		return "Umum"
	default:
		return string(l)
	}
}

// Valid reports whether l is one of the five known levels.
func (l EducationLevel) Valid() bool {
	switch l {
	case LevelSD, LevelSMP, LevelSMA, LevelUniversitas, LevelUmum:
		return true
	}
	return false
}

// gradeLevels is the single authoritative mapping from grade labels to
// education levels. Lookup is by exact label; anything not listed here is an
// INVALID_GRADE error upstream, never a guessed default.
var gradeLevels = map[string]EducationLevel{
	"Kelas 1 (SD)":   LevelSD,
	"Kelas 2 (SD)":   LevelSD,
	"Kelas 3 (SD)":   LevelSD,
	"Kelas 4 (SD)":   LevelSD,
	"Kelas 5 (SD)":   LevelSD,
	"Kelas 6 (SD)":   LevelSD,
	"Kelas 7 (SMP)":  LevelSMP,
	"Kelas 8 (SMP)":  LevelSMP,
	"Kelas 9 (SMP)":  LevelSMP,
	"Kelas 10 (SMA)": LevelSMA,
	"Kelas 11 (SMA)": LevelSMA,
	"Kelas 12 (SMA)": LevelSMA,
	"Mahasiswa":      LevelUniversitas,
	"Umum":           LevelUmum,
}

// LevelForGrade resolves a grade label to its education level. The second
// return value is false for unknown labels.
func LevelForGrade(grade string) (EducationLevel, bool) {
	level, ok := gradeLevels[grade]
	return level, ok
}

// GradesForLevel returns every grade label mapping to the given level, used
// by the frontend to restrict member grade choices once the leader's level is
// known.
func GradesForLevel(level EducationLevel) []string {
	grades := make([]string, 0, 6)
	for _, grade := range gradeOrder {
		if gradeLevels[grade] == level {
			grades = append(grades, grade)
		}
	}
	return grades
}

// gradeOrder keeps GradesForLevel output stable.
var gradeOrder = []string{
	"Kelas 1 (SD)", "Kelas 2 (SD)", "Kelas 3 (SD)", "Kelas 4 (SD)", "Kelas 5 (SD)", "Kelas 6 (SD)",
	"Kelas 7 (SMP)", "Kelas 8 (SMP)", "Kelas 9 (SMP)",
	"Kelas 10 (SMA)", "Kelas 11 (SMA)", "Kelas 12 (SMA)",
	"Mahasiswa", "Umum",
}
