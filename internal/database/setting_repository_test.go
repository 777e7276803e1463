package database_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/gopost/gopost/internal/database"
	"github.com/gopost/gopost/internal/domain"
)

func TestSettingRepository_Get(t *testing.T) {
	testCases := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		want      string
	}{
		{
			name: "returns stored value",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT value FROM settings").
					WithArgs(domain.SettingPauseMode).
					WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("true"))
			},
			want: "true",
		},
		{
			name: "absent key yields fallback",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT value FROM settings").
					WithArgs(domain.SettingPauseMode).
					WillReturnRows(sqlmock.NewRows([]string{"value"}))
			},
			want: "false",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tc.setupMock(mock)

			repo := database.NewSettingRepository(db)
			got, err := repo.Get(context.Background(), domain.SettingPauseMode, "false")
			if err != nil {
				t.Fatalf("Get() error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Get() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSettingRepository_Set(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewSettingRepository(db)

	mock.ExpectExec("INSERT INTO settings").
		WithArgs(domain.SettingPauseMode, "true").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Set(context.Background(), domain.SettingPauseMode, "true"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
