package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/crystalball/internal/adapters/http/api"
	service "github.com/okian/crystalball/internal/app"
	"github.com/okian/crystalball/internal/domain/features"
	"github.com/okian/crystalball/internal/domain/match"
	"github.com/okian/crystalball/internal/domain/stats"
	"github.com/okian/crystalball/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests; failed requests are logged by MetricsMiddleware.
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
}

// mockDependencies implements api.Dependencies for handler tests.
type mockDependencies struct {
	snap        *stats.Snapshot
	prediction  api.Prediction
	forecastErr error
	lastQuery   features.Query
	status      api.Status
	reports     []api.Report
	ready       bool
}

func (m *mockDependencies) Forecast(_ context.Context, q features.Query) (api.Prediction, error) {
	m.lastQuery = q
	if m.forecastErr != nil {
		return api.Prediction{}, m.forecastErr
	}
	return m.prediction, nil
}

func (m *mockDependencies) Snapshot() *stats.Snapshot { return m.snap }
func (m *mockDependencies) Status() api.Status        { return m.status }
func (m *mockDependencies) Reports() []api.Report     { return m.reports }
func (m *mockDependencies) Ready() bool               { return m.ready }

func snapshot() *stats.Snapshot {
	table, err := match.NewTable([]match.Match{
		{ID: 10, Team1: "River", Team2: "Boca", Score1: 2, Score2: 1, Year: 2010},
		{ID: 11, Team1: "Boca", Team2: "River", Score1: 0, Score2: 1, Year: 2011},
		{ID: 12, Team1: "River", Team2: "Racing", Score1: 1, Score2: 3, Year: 2012},
		{ID: 13, Team1: "Racing", Team2: "Boca", Score1: 2, Score2: 2, Year: 2012},
	})
	if err != nil {
		panic(err)
	}
	agg, err := stats.NewAggregator(2)
	if err != nil {
		panic(err)
	}
	return agg.Aggregate(table)
}

func serve(deps api.Dependencies, target string) *httptest.ResponseRecorder {
	router := api.NewServer(deps).Router()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		panic(err)
	}
	return body
}

func TestHealthAndMetrics(t *testing.T) {
	Convey("Given a server whose predictor is ready", t, func() {
		deps := &mockDependencies{ready: true}

		Convey("When GET /healthz is called", func() {
			w := serve(deps, "/healthz")

			Convey("Then it reports ok and ready", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				body := decode(w)
				So(body["status"], ShouldEqual, "ok")
				So(body["ready"], ShouldEqual, true)
			})
		})

		Convey("When GET /metrics is called after a request", func() {
			_ = serve(deps, "/healthz")
			w := serve(deps, "/metrics")

			Convey("Then the HTTP counters are exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "crystalball_predictor_http_requests_total")
			})
		})

		Convey("When a route is called with the wrong method", func() {
			router := api.NewServer(deps).Router()
			req := httptest.NewRequest(http.MethodPost, "/healthz", http.NoBody)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestPredictHandler(t *testing.T) {
	Convey("Given a predictor that answers queries", t, func() {
		deps := &mockDependencies{prediction: api.Prediction{
			Year: 2013, Team1: "River", Team2: "Boca", Winner: "River", Label: 1, Output: 0.21,
		}}

		Convey("When a complete query is sent", func() {
			w := serve(deps, "/predict?year=2013&team1=River&team2=Boca")

			Convey("Then the prediction is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastQuery, ShouldResemble, features.Query{Year: 2013, Team1: "River", Team2: "Boca"})
				body := decode(w)
				So(body["winner"], ShouldEqual, "River")
				So(body["label"], ShouldEqual, 1.0)
				So(body["output"], ShouldAlmostEqual, 0.21)
			})
		})

		Convey("When parameters are missing or malformed", func() {
			for _, target := range []string{
				"/predict?team1=River&team2=Boca",
				"/predict?year=next&team1=River&team2=Boca",
				"/predict?year=2013&team2=Boca",
				"/predict?year=2013&team1=River",
			} {
				w := serve(deps, target)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
			}
		})
	})

	Convey("Given a predictor that fails", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{fmt.Errorf("%w: team %q", service.ErrInvalidQuery, "a:b"), http.StatusBadRequest, "bad_request"},
			{fmt.Errorf("%w: %q", service.ErrUnknownTeam, "Atlantis"), http.StatusNotFound, "not_found"},
			{&features.FeatureNotFoundError{Name: "score_diff"}, http.StatusUnprocessableEntity, "feature_not_found"},
			{fmt.Errorf("%w: ProcessData has not run", service.ErrNotReady), http.StatusServiceUnavailable, "not_ready"},
			{fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
		}

		Convey("Then each error kind maps to its status", func() {
			for _, c := range cases {
				deps := &mockDependencies{forecastErr: c.err}
				w := serve(deps, "/predict?year=2013&team1=River&team2=Boca")
				So(w.Code, ShouldEqual, c.status)
				body := decode(w)
				So(body["code"], ShouldEqual, c.code)
				So(body["message"], ShouldEqual, c.err.Error())
			}
		})
	})
}

func TestStatsHandler(t *testing.T) {
	Convey("Given aggregated stats", t, func() {
		deps := &mockDependencies{snap: snapshot()}

		Convey("When GET /stats/{team}/{window} names a known row", func() {
			w := serve(deps, "/stats/Boca/all_time")

			Convey("Then the row is returned with its key", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["key"], ShouldEqual, "Boca:all_time")
				So(body["window"], ShouldEqual, "all_time")
				row := body["stats"].(map[string]any)
				So(row["matches_played"], ShouldEqual, 3.0)
				So(row["matches_won"], ShouldEqual, 0.0)
			})
		})

		Convey("When the window is a season after the table", func() {
			w := serve(deps, "/stats/River/2013")

			Convey("Then it is computed from the trailing seasons", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				row := decode(w)["stats"].(map[string]any)
				So(row["matches_played"], ShouldEqual, 2.0)
				So(row["matches_won"], ShouldEqual, 1.0)
				So(row["years_played"], ShouldEqual, 2.0)
			})
		})

		Convey("When the window is malformed", func() {
			w := serve(deps, "/stats/Boca/last_year")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the team has no row", func() {
			w := serve(deps, "/stats/Atlantis/2012")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When GET /teams/ranked uses the defaults", func() {
			w := serve(deps, "/teams/ranked")

			Convey("Then teams are ranked by all-time win share", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["window"], ShouldEqual, "all_time")
				So(body["stat"], ShouldEqual, "matches_won_percent")
				teams := body["teams"].([]any)
				So(teams, ShouldHaveLength, 3)
				first := teams[0].(map[string]any)
				So(first["rank"], ShouldEqual, 1.0)
				So(first["team"], ShouldEqual, "River")
			})
		})

		Convey("When GET /teams/ranked names an unknown stat", func() {
			w := serve(deps, "/teams/ranked?window=2012&stat=goals")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})

	Convey("Given no data has been read", t, func() {
		deps := &mockDependencies{}
		So(serve(deps, "/stats/Boca/all_time").Code, ShouldEqual, http.StatusServiceUnavailable)
		So(serve(deps, "/teams/ranked").Code, ShouldEqual, http.StatusServiceUnavailable)
	})
}

func TestTrainingHandler(t *testing.T) {
	Convey("Given a predictor with two finished passes", t, func() {
		last := api.Report{RunID: "run-1", Pass: 2, TrainAccuracy: 61.5, TestAccuracy: 58}
		deps := &mockDependencies{
			status:  api.Status{RunID: "run-1", Passes: 2, Last: &last},
			reports: []api.Report{{RunID: "run-1", Pass: 1}, last},
		}

		Convey("When GET /training is called", func() {
			w := serve(deps, "/training")

			Convey("Then the status and every report are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				status := body["status"].(map[string]any)
				So(status["run_id"], ShouldEqual, "run-1")
				So(status["last_report"].(map[string]any)["pass"], ShouldEqual, 2.0)
				So(body["reports"], ShouldHaveLength, 2)
			})
		})
	})

	Convey("Given a predictor that has not trained", t, func() {
		w := serve(&mockDependencies{}, "/training")
		So(w.Code, ShouldEqual, http.StatusOK)
		So(decode(w)["reports"], ShouldBeEmpty)
	})
}
