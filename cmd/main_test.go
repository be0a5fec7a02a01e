package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/crystalball/internal/config"
	"github.com/okian/crystalball/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
}

// writeLeague writes a provider table where every pairing meets once a season.
func writeLeague(t *testing.T) string {
	t.Helper()
	rng := rand.New(rand.NewSource(11))
	teams := []string{"River", "Boca", "Racing", "Independiente", "Huracan"}
	var b strings.Builder
	b.WriteString(",team1,team2,score1,score2,year\n")
	id := 0
	for year := 2000; year < 2008; year++ {
		for i, t1 := range teams {
			for j, t2 := range teams {
				if i == j {
					continue
				}
				fmt.Fprintf(&b, "%d,%s,%s,%d,%d,%d\n", id, t1, t2, rng.Intn(5-i+1), rng.Intn(5-j+1), year)
				id++
			}
		}
	}
	path := filepath.Join(t.TempDir(), "raw_matches.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.New(context.Background())
	cfg.MatchesPath = writeLeague(t)
	cfg.HiddenFactor = 2
	cfg.Seed = 3
	return cfg
}

func TestLoadMatches(t *testing.T) {
	convey.Convey("Given a provider CSV", t, func() {
		ctx := context.Background()
		cfg := testConfig(t)

		convey.Convey("When no store is configured", func() {
			store, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(store, convey.ShouldBeNil)

			table, err := loadMatches(ctx, cfg, nil)

			convey.Convey("Then the table is read from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(table.Len(), convey.ShouldEqual, 8*20)
			})
		})

		convey.Convey("When an sqlite store is configured", func() {
			cfg.DatabaseDSN = ":memory:"
			store, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer store.Close()

			fromCSV, err := loadMatches(ctx, cfg, store)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the matches are mirrored and can be read back", func() {
				cfg.MatchesSource = config.SourceDatabase
				fromDB, err := loadMatches(ctx, cfg, store)
				convey.So(err, convey.ShouldBeNil)
				convey.So(fromDB.Matches(), convey.ShouldResemble, fromCSV.Matches())
			})
		})

		convey.Convey("When the database source has no store", func() {
			cfg.MatchesSource = config.SourceDatabase
			_, err := loadMatches(ctx, cfg, nil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the file does not exist", func() {
			cfg.MatchesPath = filepath.Join(t.TempDir(), "missing.csv")
			_, err := loadMatches(ctx, cfg, nil)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestPipelineAndRouter(t *testing.T) {
	convey.Convey("Given a predictor built from config", t, func() {
		ctx := context.Background()
		cfg := testConfig(t)
		table, err := loadMatches(ctx, cfg, nil)
		convey.So(err, convey.ShouldBeNil)

		p, err := newPredictor(cfg, nil)
		convey.So(err, convey.ShouldBeNil)
		convey.So(p.Seed(), convey.ShouldEqual, int64(3))
		convey.So(p.Status().InputFeatures, convey.ShouldResemble, cfg.InputFeatures)

		convey.So(p.ReadData(ctx, table), convey.ShouldBeNil)
		convey.So(p.ProcessData(ctx), convey.ShouldBeNil)

		convey.Convey("When training runs pass by pass", func() {
			convey.So(train(ctx, p, 2, logger.Get()), convey.ShouldBeNil)
			convey.So(p.Status().Passes, convey.ShouldEqual, 2)
			convey.So(p.Reports(), convey.ShouldHaveLength, 2)
		})

		convey.Convey("When training is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			convey.So(train(cctx, p, 5, logger.Get()), convey.ShouldBeNil)
			convey.So(p.Status().Passes, convey.ShouldEqual, 0)
		})

		convey.Convey("When the router serves requests", func() {
			r := newRouter(p)
			get := func(target string) *httptest.ResponseRecorder {
				w := httptest.NewRecorder()
				r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, http.NoBody))
				return w
			}

			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/predict?year=2008&team1=River&team2=Boca").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/stats/River/2008").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/training").Code, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestRegisterRuntimeCollectors(t *testing.T) {
	convey.Convey("Given a fresh registry", t, func() {
		reg := prometheus.NewRegistry()

		convey.Convey("Then runtime collectors register once", func() {
			convey.So(registerRuntimeCollectors(reg), convey.ShouldBeNil)
			convey.So(registerRuntimeCollectors(reg), convey.ShouldNotBeNil)
		})
	})
}
