package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/gopost/gopost/internal/api"
	"github.com/gopost/gopost/internal/database"
	"github.com/gopost/gopost/internal/domain"
	"github.com/gopost/gopost/internal/logger"
)

type fakeRunner struct {
	monitorRuns  int
	dispatchRuns int
}

func (f *fakeRunner) RunCycle(context.Context) error {
	f.monitorRuns++
	return nil
}

func (f *fakeRunner) CheckAndSend(context.Context) error {
	f.dispatchRuns++
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, *fakeRunner) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	runner := &fakeRunner{}
	router := api.NewRouter(
		database.NewPostRepository(sqlxDB),
		database.NewTopicRepository(sqlxDB),
		database.NewSettingRepository(sqlxDB),
		sqlxDB, nil,
		runner, runner,
		false, logger.NewNopLogger(),
	)
	return router.SetupRoutes(), mock, runner
}

func TestApprovePost(t *testing.T) {
	engine, mock, _ := newTestRouter(t)

	mock.ExpectExec("UPDATE posts").
		WithArgs("p1", domain.StatusPending, domain.StatusAwaitingApproval).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts/p1/approve", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "approved") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestApprovePost_NotAwaiting(t *testing.T) {
	engine, mock, _ := newTestRouter(t)

	// Already-dispatched posts match no row and must 404, not resurrect.
	mock.ExpectExec("UPDATE posts").
		WithArgs("p1", domain.StatusPending, domain.StatusAwaitingApproval).
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts/p1/approve", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestRejectPost_Deletes(t *testing.T) {
	engine, mock, _ := newTestRouter(t)

	mock.ExpectExec("DELETE FROM posts").
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts/p1/reject", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreatePost_Validation(t *testing.T) {
	engine, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts",
		strings.NewReader(`{"scheduled_time":"2025-03-01T10:00:00Z"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing content should 400, got %d", w.Code)
	}
}

func TestCreatePost(t *testing.T) {
	engine, mock, _ := newTestRouter(t)

	mock.ExpectExec("INSERT INTO posts").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts",
		strings.NewReader(`{"content":"hand-written post #go"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"awaiting_approval"`) {
		t.Errorf("manual drafts start awaiting approval, body = %s", w.Body.String())
	}
}

func TestRunEndpoints(t *testing.T) {
	engine, _, runner := newTestRouter(t)

	for _, path := range []string{"/api/v1/run/monitoring", "/api/v1/run/dispatch"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, nil)
		engine.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, w.Code)
		}
	}
	if runner.monitorRuns != 1 || runner.dispatchRuns != 1 {
		t.Errorf("runs = %d/%d, want 1/1", runner.monitorRuns, runner.dispatchRuns)
	}
}

func TestSetPauseMode(t *testing.T) {
	engine, mock, _ := newTestRouter(t)

	mock.ExpectExec("INSERT INTO settings").
		WithArgs(domain.SettingPauseMode, "true").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings/pause",
		strings.NewReader(`{"paused":true}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
