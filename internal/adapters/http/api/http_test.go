package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/courtside/refassign/internal/adapters/http/api"
	"github.com/courtside/refassign/internal/adapters/repository"
	"github.com/courtside/refassign/internal/domain/lifecycle"
	"github.com/courtside/refassign/internal/domain/model"
)

// mockDeps implements api.Dependencies over in-memory fixtures.
type mockDeps struct {
	runResult   model.SchedulingResult
	runErr      error
	results     map[string]model.SchedulingResult
	assignments map[string]model.Assignment
	respondErr  error

	lastResponse lifecycle.Response
	lastVersion  int64
	lastReason   string
}

func (m *mockDeps) RunSchedule(_ context.Context, _ model.SchedulingContext) (model.SchedulingResult, error) {
	return m.runResult, m.runErr
}

func (m *mockDeps) GetResult(_ context.Context, runID string) (model.SchedulingResult, error) {
	if r, ok := m.results[runID]; ok {
		return r, nil
	}
	return model.SchedulingResult{}, fmt.Errorf("run %s: %w", runID, repository.ErrNotFound)
}

func (m *mockDeps) GetAssignment(_ context.Context, id string) (model.Assignment, error) {
	if a, ok := m.assignments[id]; ok {
		return a, nil
	}
	return model.Assignment{}, fmt.Errorf("assignment %s: %w", id, repository.ErrNotFound)
}

func (m *mockDeps) Offer(ctx context.Context, id string) (model.Assignment, error) {
	a, err := m.GetAssignment(ctx, id)
	if err != nil {
		return model.Assignment{}, err
	}
	a.Status = model.StatusOffered
	return a, nil
}

func (m *mockDeps) Respond(ctx context.Context, id string, version int64, response lifecycle.Response) (model.Assignment, error) {
	if m.respondErr != nil {
		return model.Assignment{}, m.respondErr
	}
	a, err := m.GetAssignment(ctx, id)
	if err != nil {
		return model.Assignment{}, err
	}
	m.lastResponse = response
	m.lastVersion = version
	a.Status = model.StatusConfirmed
	if response == lifecycle.ResponseDeclined {
		a.Status = model.StatusDeclined
	}
	return a, nil
}

func (m *mockDeps) Cancel(ctx context.Context, id, reason string) (model.Assignment, error) {
	a, err := m.GetAssignment(ctx, id)
	if err != nil {
		return model.Assignment{}, err
	}
	m.lastReason = reason
	a.Status = model.StatusCancelled
	return a, nil
}

func (m *mockDeps) Complete(ctx context.Context, id string) (model.Assignment, error) {
	a, err := m.GetAssignment(ctx, id)
	if err != nil {
		return model.Assignment{}, err
	}
	a.Status = model.StatusCompleted
	return a, nil
}

func (m *mockDeps) MarkNoShow(ctx context.Context, id string) (model.Assignment, error) {
	a, err := m.GetAssignment(ctx, id)
	if err != nil {
		return model.Assignment{}, err
	}
	a.Status = model.StatusNoShow
	return a, nil
}

func (m *mockDeps) MarkPaid(ctx context.Context, id string) (model.Assignment, error) {
	a, err := m.GetAssignment(ctx, id)
	if err != nil {
		return model.Assignment{}, err
	}
	a.Status = model.StatusPaid
	return a, nil
}

type mockStats struct{}

func (mockStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestMux(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, mockStats{}).Register(context.Background(), mux)
	return mux
}

func testContextJSON() string {
	start := time.Date(2026, 3, 7, 18, 0, 0, 0, time.UTC)
	sc := model.SchedulingContext{
		Games: []model.Game{{
			ID:       "g1",
			VenueID:  "v1",
			Start:    start,
			Duration: 2 * time.Hour,
			Type:     model.Regular,
			Required: []model.RequiredOfficial{{Role: model.HeadReferee, Quantity: 1}},
		}},
		Referees: []model.Referee{{ID: "r1", Experience: model.Experienced}},
		Venues:   []model.Venue{{ID: "v1", Name: "Main Gym"}},
	}
	b, _ := json.Marshal(sc)
	return string(b)
}

func TestRunsEndpoints(t *testing.T) {
	Convey("Given the runs endpoints", t, func() {
		deps := &mockDeps{
			runResult: model.SchedulingResult{RunID: "run-1", Success: true},
			results: map[string]model.SchedulingResult{
				"run-1": {RunID: "run-1", Success: true},
			},
		}
		mux := newTestMux(deps)

		Convey("When posting a valid scheduling context", func() {
			req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(testContextJSON()))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should return the run result", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var res model.SchedulingResult
				So(json.Unmarshal(rec.Body.Bytes(), &res), ShouldBeNil)
				So(res.RunID, ShouldEqual, "run-1")
				So(res.Success, ShouldBeTrue)
			})
		})

		Convey("When posting malformed JSON", func() {
			req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader("{not json"))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should return 400", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When posting a context with an unknown experience level", func() {
			body := strings.Replace(testContextJSON(), "EXPERIENCED", "WIZARD", 1)
			req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should return 400", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When posting a context with an unknown objective", func() {
			body := strings.Replace(testContextJSON(), `"objective":""`, `"objective":"MAXIMIZE_CHAOS"`, 1)
			req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should return 400", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When fetching a stored run", func() {
			req := httptest.NewRequest(http.MethodGet, "/runs/run-1", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should return the result", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "run-1")
			})
		})

		Convey("When fetching an unknown run", func() {
			req := httptest.NewRequest(http.MethodGet, "/runs/nope", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should return 404", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestAssignmentEndpoints(t *testing.T) {
	Convey("Given the assignment endpoints", t, func() {
		deps := &mockDeps{
			assignments: map[string]model.Assignment{
				"asg-1": {ID: "asg-1", GameID: "g1", RefereeID: "r1", Role: model.HeadReferee, Status: model.StatusPending, Version: 2},
			},
		}
		mux := newTestMux(deps)

		Convey("When fetching an assignment", func() {
			req := httptest.NewRequest(http.MethodGet, "/assignments/asg-1", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should return the record", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var a model.Assignment
				So(json.Unmarshal(rec.Body.Bytes(), &a), ShouldBeNil)
				So(a.ID, ShouldEqual, "asg-1")
			})
		})

		Convey("When fetching an unknown assignment", func() {
			req := httptest.NewRequest(http.MethodGet, "/assignments/nope", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should return 404", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When offering an assignment", func() {
			req := httptest.NewRequest(http.MethodPost, "/assignments/asg-1/offer", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the status should become OFFERED", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, string(model.StatusOffered))
			})
		})

		Convey("When accepting an offer with the current version", func() {
			body := `{"response":"ACCEPTED","version":2}`
			req := httptest.NewRequest(http.MethodPost, "/assignments/asg-1/response", strings.NewReader(body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the status should become CONFIRMED", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.lastResponse, ShouldEqual, lifecycle.ResponseAccepted)
				So(deps.lastVersion, ShouldEqual, 2)
				So(rec.Body.String(), ShouldContainSubstring, string(model.StatusConfirmed))
			})
		})

		Convey("When responding with a stale version", func() {
			deps.respondErr = &lifecycle.StaleAssignmentError{AssignmentID: "asg-1", Expected: 1, Actual: 2}
			body := `{"response":"ACCEPTED","version":1}`
			req := httptest.NewRequest(http.MethodPost, "/assignments/asg-1/response", strings.NewReader(body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should return 409", func() {
				So(rec.Code, ShouldEqual, http.StatusConflict)
				So(rec.Body.String(), ShouldContainSubstring, "stale_version")
			})
		})

		Convey("When responding with an unknown response value", func() {
			body := `{"response":"MAYBE","version":2}`
			req := httptest.NewRequest(http.MethodPost, "/assignments/asg-1/response", strings.NewReader(body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should return 400", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When cancelling with a reason", func() {
			body := `{"reason":"venue flooded"}`
			req := httptest.NewRequest(http.MethodPost, "/assignments/asg-1/cancel", strings.NewReader(body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the status should become CANCELLED", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.lastReason, ShouldEqual, "venue flooded")
				So(rec.Body.String(), ShouldContainSubstring, string(model.StatusCancelled))
			})
		})

		Convey("When cancelling without a body", func() {
			req := httptest.NewRequest(http.MethodPost, "/assignments/asg-1/cancel", http.NoBody)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should still succeed", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When posting an unknown action", func() {
			req := httptest.NewRequest(http.MethodPost, "/assignments/asg-1/promote", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should return 400", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When using GET on an action path", func() {
			req := httptest.NewRequest(http.MethodGet, "/assignments/asg-1/offer", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should return 404", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given the operational endpoints", t, func() {
		mux := newTestMux(&mockDeps{})

		Convey("When requesting /healthz", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should report ok", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "ok")
			})
		})

		Convey("When requesting /stats", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should return the stats map", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "started")
			})
		})
	})
}
