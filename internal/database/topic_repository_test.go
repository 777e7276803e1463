package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gopost/gopost/internal/database"
	"github.com/gopost/gopost/internal/domain"
)

func topicColumns() []string {
	return []string{
		"id", "query", "source_kind", "interval_minutes", "last_run", "is_active", "created_at",
	}
}

func TestTopicRepository_ListActive(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := database.NewTopicRepository(db)

	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM monitored_topics WHERE is_active").
		WillReturnRows(sqlmock.NewRows(topicColumns()).
			AddRow("t-1", "golang release", domain.SourceWebSearch, 60, nil, true, created).
			AddRow("t-2", "database migrations", domain.SourceSocialSearch, 30, created, true, created.Add(time.Hour)))

	topics, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, topics, 2)

	assert.Equal(t, "golang release", topics[0].Query)
	assert.Equal(t, domain.SourceWebSearch, topics[0].SourceKind)
	assert.Nil(t, topics[0].LastRun)
	assert.Equal(t, domain.SourceSocialSearch, topics[1].SourceKind)
	require.NotNil(t, topics[1].LastRun)
	assert.True(t, topics[1].LastRun.Equal(created))
}

func TestTopicRepository_UpdateLastRun(t *testing.T) {
	ctx := context.Background()
	ranAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   error
	}{
		{
			name: "stamps existing topic",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE monitored_topics SET last_run").
					WithArgs("t-1", ranAt).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "unknown topic reports not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE monitored_topics SET last_run").
					WithArgs("t-1", ranAt).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := database.NewTopicRepository(db)
			tc.setupMock(mock)

			err := repo.UpdateLastRun(ctx, "t-1", ranAt)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTopicRepository_Deactivate_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewTopicRepository(db)

	mock.ExpectExec("UPDATE monitored_topics SET is_active").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Deactivate(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTopicRepository_ExistsByQuery(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewTopicRepository(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("golang release", domain.SourceWebSearch).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByQuery(context.Background(), "golang release", domain.SourceWebSearch)
	require.NoError(t, err)
	assert.True(t, exists)
}
