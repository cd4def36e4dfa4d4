package alert

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func asUser(id, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", id)
		c.Locals("role", role)
		return c.Next()
	}
}

func newTestApp(t *testing.T, querier pgxmock.PgxPoolIface) *fiber.App {
	t.Helper()
	app := fiber.New()
	RegisterRoutes(app.Group("/alerts"), newTestService(t, querier), asUser("parent-1", "parent"))
	return app
}

func TestEmergencyHandler(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO alerts`).
		WithArgs(pgxmock.AnyArg(), "s1", "", TypeEmergency, SeverityCritical, StatusNew,
			"Emergency", "stranger at the door", 0.0).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))

	app := newTestApp(t, mock)
	req := httptest.NewRequest("POST", "/alerts/emergency", strings.NewReader(
		`{"session_id":"s1","message":"stranger at the door"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
}

func TestEmergencyHandlerMissingMessage(t *testing.T) {
	app := newTestApp(t, nil)
	req := httptest.NewRequest("POST", "/alerts/emergency", strings.NewReader(`{"session_id":"s1"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestViewHandlerBackwardMoveConflict(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`FROM alerts WHERE id=\$1`).
		WithArgs("a1").
		WillReturnRows(alertRow("a1", StatusAcknowledged))

	app := newTestApp(t, mock)
	resp, err := app.Test(httptest.NewRequest("POST", "/alerts/a1/view", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestViewHandlerResolvedAlertSucceeds(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`FROM alerts WHERE id=\$1`).
		WithArgs("a1").
		WillReturnRows(alertRow("a1", StatusResolved))

	app := newTestApp(t, mock)
	resp, err := app.Test(httptest.NewRequest("POST", "/alerts/a1/view", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("terminal no-op should not write: %v", err)
	}
}

func TestListForSessionHandler(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`FROM alerts WHERE session_id=\$1`).
		WithArgs("s1").
		WillReturnRows(alertRow("a1", StatusNew))

	app := newTestApp(t, mock)
	resp, err := app.Test(httptest.NewRequest("GET", "/alerts/session/s1", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
