package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/cendekia-fest/kompetisi-api/internal/models"
)

func newTeamMemberRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTeamMemberRepositoryReplace(t *testing.T) {
	db, mock, cleanup := newTeamMemberRepoMock(t)
	defer cleanup()
	repo := NewTeamMemberRepository(db)

	members := []models.TeamMember{
		{Name: "Ani", Grade: "Kelas 8 (SMP)", Role: models.TeamRoleLeader, BirthDate: time.Now()},
		{Name: "Budi", Grade: "Kelas 7 (SMP)", Role: models.TeamRoleMember, BirthDate: time.Now()},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM team_members WHERE registration_id = \$1`).
		WithArgs("reg-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO team_members`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO team_members`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE registrations SET team_data_complete = TRUE WHERE id = \$1`).
		WithArgs("reg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Replace(context.Background(), "reg-1", members)
	require.NoError(t, err)
	require.NotEmpty(t, members[0].ID)
	require.Equal(t, "reg-1", members[1].RegistrationID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamMemberRepositoryReplaceRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newTeamMemberRepoMock(t)
	defer cleanup()
	repo := NewTeamMemberRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM team_members WHERE registration_id = \$1`).
		WithArgs("reg-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO team_members`).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), "reg-1", []models.TeamMember{{Name: "Ani", Role: models.TeamRoleLeader}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamMemberRepositoryFindLeader(t *testing.T) {
	db, mock, cleanup := newTeamMemberRepoMock(t)
	defer cleanup()
	repo := NewTeamMemberRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "registration_id", "name", "email", "phone", "school", "grade",
		"id_document_type", "id_document_number", "address", "birth_date", "gender", "role", "created_at",
	}).AddRow("tm-1", "reg-1", "Ani", "ani@example.com", "0811", "SMPN 1", "Kelas 8 (SMP)",
		"KARTU_PELAJAR", "123", "Jl. Melati", time.Now(), "F", models.TeamRoleLeader, time.Now())

	mock.ExpectQuery(`FROM team_members WHERE registration_id = \$1 AND role = \$2`).
		WithArgs("reg-1", models.TeamRoleLeader).
		WillReturnRows(rows)

	leader, err := repo.FindLeader(context.Background(), "reg-1")
	require.NoError(t, err)
	require.Equal(t, models.TeamRoleLeader, leader.Role)
	require.Equal(t, "Kelas 8 (SMP)", leader.Grade)
	require.NoError(t, mock.ExpectationsWereMet())
}
