package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForGrade(t *testing.T) {
	cases := map[string]EducationLevel{
		"Kelas 3 (SD)":   LevelSD,
		"Kelas 7 (SMP)":  LevelSMP,
		"Kelas 12 (SMA)": LevelSMA,
		"Mahasiswa":      LevelUniversitas,
		"Umum":           LevelUmum,
	}
	for grade, want := range cases {
		level, ok := LevelForGrade(grade)
		require.True(t, ok, grade)
		assert.Equal(t, want, level)
	}
}

func TestLevelForGradeUnknown(t *testing.T) {
	for _, grade := range []string{"", "kelas 7", "Kelas 13 (SMA)", "SMP"} {
		_, ok := LevelForGrade(grade)
		assert.False(t, ok, grade)
	}
}

func TestGradesForLevel(t *testing.T) {
	grades := GradesForLevel(LevelSMP)
	assert.Equal(t, []string{"Kelas 7 (SMP)", "Kelas 8 (SMP)", "Kelas 9 (SMP)"}, grades)

	for _, grade := range grades {
		level, ok := LevelForGrade(grade)
		require.True(t, ok)
		assert.Equal(t, LevelSMP, level)
	}
}
