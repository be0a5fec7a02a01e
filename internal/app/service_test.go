package service_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	service "github.com/okian/crystalball/internal/app"
	"github.com/okian/crystalball/internal/domain/features"
	"github.com/okian/crystalball/internal/domain/match"
	"github.com/okian/crystalball/internal/domain/stats"
	"github.com/okian/crystalball/internal/domain/teamkey"
	"github.com/okian/crystalball/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
}

// league plays every pairing once a season; stronger teams win more often.
func league(seed int64) *match.Table {
	rng := rand.New(rand.NewSource(seed))
	strength := map[string]int{"River": 5, "Boca": 4, "Racing": 3, "Independiente": 2, "Huracan": 1}
	teams := []string{"River", "Boca", "Racing", "Independiente", "Huracan"}
	var rows []match.Match
	id := 1
	for year := 2000; year < 2010; year++ {
		for _, t1 := range teams {
			for _, t2 := range teams {
				if t1 == t2 {
					continue
				}
				rows = append(rows, match.Match{
					ID: id, Team1: t1, Team2: t2, Year: year,
					Score1: rng.Intn(strength[t1] + 1),
					Score2: rng.Intn(strength[t2] + 1),
				})
				id++
			}
		}
	}
	t, err := match.NewTable(rows)
	if err != nil {
		panic(err)
	}
	return t
}

type recordingSink struct {
	statsRows    int
	enrichedRows int
}

func (r *recordingSink) SaveStats(_ context.Context, snap *stats.Snapshot) error {
	r.statsRows = snap.Len()
	return nil
}

func (r *recordingSink) SaveEnriched(_ context.Context, t *features.Table) error {
	r.enrichedRows = t.Len()
	return nil
}

func newPredictor(opts ...service.Option) *service.Predictor {
	base := []service.Option{service.WithSeed(7), service.WithHiddenFactor(2), service.WithLearningRate(0.05)}
	p, err := service.New(append(base, opts...)...)
	if err != nil {
		panic(err)
	}
	return p
}

func TestPredictor_New(t *testing.T) {
	Convey("Given a predictor with default options", t, func() {
		p, err := service.New()
		So(err, ShouldBeNil)

		Convey("Then it gets a run id and the default feature list", func() {
			So(p.RunID(), ShouldNotBeEmpty)
			So(p.Status().InputFeatures, ShouldResemble, features.DefaultInputs)
			So(p.Ready(), ShouldBeFalse)
		})
	})

	Convey("Given invalid options", t, func() {
		_, err := service.New(service.WithRecentYears(0))
		So(errors.Is(err, stats.ErrConfig), ShouldBeTrue)

		_, err = service.New(service.WithInputFeatures([]string{"year", "goals_scored_1"}))
		var nf *features.FeatureNotFoundError
		So(errors.As(err, &nf), ShouldBeTrue)
		So(nf.Name, ShouldEqual, "goals_scored_1")
	})
}

func TestPredictor_Pipeline(t *testing.T) {
	Convey("Given a predictor and a league history", t, func() {
		ctx := context.Background()
		sink := &recordingSink{}
		p := newPredictor(service.WithReportSink(sink))
		table := league(3)

		Convey("When stages run out of order", func() {
			So(errors.Is(p.ProcessData(ctx), service.ErrNotReady), ShouldBeTrue)
			_, err := p.Train(ctx, 1)
			So(errors.Is(err, service.ErrNotReady), ShouldBeTrue)
			_, err = p.Predict(ctx, 2010, "River", "Boca")
			So(errors.Is(err, service.ErrNotReady), ShouldBeTrue)
		})

		Convey("When the data is read and processed", func() {
			So(p.ReadData(ctx, table), ShouldBeNil)
			So(p.ProcessData(ctx), ShouldBeNil)

			Convey("Then outputs were exported and samples split", func() {
				st := p.Status()
				So(sink.statsRows, ShouldEqual, p.Snapshot().Len())
				So(sink.enrichedRows, ShouldEqual, p.Enriched().Len())
				So(st.Matches, ShouldEqual, table.Len())
				So(st.TrainSamples+st.TestSamples, ShouldEqual, st.EnrichedRows)
				So(st.TrainSamples, ShouldBeGreaterThan, st.TestSamples)
				So(p.Ready(), ShouldBeTrue)
			})

			Convey("Then processing again is refused", func() {
				So(errors.Is(p.ProcessData(ctx), service.ErrAlreadyProcessed), ShouldBeTrue)
			})

			Convey("Then reading another table is refused and the stats stay put", func() {
				before, ok := p.Snapshot().Lookup("River", teamkey.AllTime)
				So(ok, ShouldBeTrue)
				status := p.Status()

				small, err := match.NewTable([]match.Match{
					{ID: 1, Team1: "River", Team2: "Boca", Score1: 0, Score2: 1, Year: 2010},
					{ID: 2, Team1: "Boca", Team2: "River", Score1: 2, Score2: 0, Year: 2011},
				})
				So(err, ShouldBeNil)
				So(errors.Is(p.ReadData(ctx, small), service.ErrAlreadyProcessed), ShouldBeTrue)

				after, _ := p.Snapshot().Lookup("River", teamkey.AllTime)
				So(after, ShouldResemble, before)
				So(p.Status().Matches, ShouldEqual, status.Matches)
				So(p.Status().EnrichedRows, ShouldEqual, status.EnrichedRows)
			})

			Convey("Then training resumes across calls", func() {
				first, err := p.Train(ctx, 3)
				So(err, ShouldBeNil)
				So(first, ShouldHaveLength, 3)
				second, err := p.Train(ctx, 2)
				So(err, ShouldBeNil)
				So(second[1].Pass, ShouldEqual, 5)
				So(p.Reports(), ShouldHaveLength, 5)
				So(p.Status().Last.Pass, ShouldEqual, 5)
				for _, r := range p.Reports() {
					So(r.RunID, ShouldEqual, p.RunID())
					So(r.TrainAccuracy, ShouldBeBetweenOrEqual, 0.0, 100.0)
					So(r.TestAccuracy, ShouldBeBetweenOrEqual, 0.0, 100.0)
				}

				trainAcc, testAcc, err := p.TestNetwork(ctx)
				So(err, ShouldBeNil)
				So(trainAcc, ShouldEqual, second[1].TrainAccuracy)
				So(testAcc, ShouldEqual, second[1].TestAccuracy)
			})

			Convey("Then a cancelled context stops training between passes", func() {
				cctx, cancel := context.WithCancel(ctx)
				cancel()
				reports, err := p.Train(cctx, 5)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(reports, ShouldBeEmpty)
			})

			Convey("Then predictions name one of the two teams", func() {
				_, err := p.Train(ctx, 2)
				So(err, ShouldBeNil)
				for _, year := range []int{2005, 2010, 2011} {
					winner, err := p.Predict(ctx, year, "River", "Huracan")
					So(err, ShouldBeNil)
					So(winner, ShouldBeIn, []string{"River", "Huracan"})
				}
				res, err := p.Forecast(ctx, features.Query{Year: 2010, Team1: "Boca", Team2: "Racing"})
				So(err, ShouldBeNil)
				So(res.Output, ShouldBeBetweenOrEqual, 0.0, 1.0)
				if res.Output >= 0.5 {
					So(res.Winner, ShouldEqual, "Racing")
				} else {
					So(res.Winner, ShouldEqual, "Boca")
				}
			})

			Convey("Then bad queries fail with typed errors", func() {
				_, err := p.Predict(ctx, 2010, "River", "Atlantis")
				So(errors.Is(err, service.ErrUnknownTeam), ShouldBeTrue)
				_, err = p.Predict(ctx, 2010, "River:2009", "Boca")
				So(errors.Is(err, service.ErrInvalidQuery), ShouldBeTrue)
				_, err = p.Predict(ctx, 2010, "", "Boca")
				So(errors.Is(err, service.ErrInvalidQuery), ShouldBeTrue)
			})
		})
	})

	Convey("Given an input that only match rows carry", t, func() {
		ctx := context.Background()
		p := newPredictor(service.WithInputFeatures([]string{"year", "score_diff"}))
		So(p.ReadData(ctx, league(3)), ShouldBeNil)
		So(p.ProcessData(ctx), ShouldBeNil)

		Convey("Then training works but ad-hoc prediction cannot build the vector", func() {
			_, err := p.Predict(ctx, 2010, "River", "Boca")
			var nf *features.FeatureNotFoundError
			So(errors.As(err, &nf), ShouldBeTrue)
			So(nf.Name, ShouldEqual, "score_diff")
		})
	})

	Convey("Given two predictors with the same seed", t, func() {
		ctx := context.Background()
		a, b := newPredictor(), newPredictor()
		ra, err := a.Run(ctx, league(5), 2)
		So(err, ShouldBeNil)
		rb, err := b.Run(ctx, league(5), 2)
		So(err, ShouldBeNil)

		Convey("Then they train identically", func() {
			So(a.Status().TrainSamples, ShouldEqual, b.Status().TrainSamples)
			for i := range ra {
				So(ra[i].TrainError, ShouldEqual, rb[i].TrainError)
				So(ra[i].TestAccuracy, ShouldEqual, rb[i].TestAccuracy)
			}
			So(a.RunID(), ShouldNotEqual, b.RunID())
		})
	})
}
