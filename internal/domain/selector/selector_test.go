package selector

import (
	"errors"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/nkast/ratekeeper/internal/domain/timing"
	"github.com/nkast/ratekeeper/internal/domain/vote"
)

func singleGroupCatalog() *timing.Catalog {
	cat, err := timing.NewCatalog([]timing.Record{
		{ID: 0, Group: 0, VsyncPeriod: timing.FPSToPeriod(60)},
		{ID: 1, Group: 0, VsyncPeriod: timing.FPSToPeriod(90)},
		{ID: 2, Group: 0, VsyncPeriod: timing.FPSToPeriod(120)},
	})
	if err != nil {
		panic(err)
	}
	return cat
}

func multiGroupCatalog() *timing.Catalog {
	cat, err := timing.NewCatalog([]timing.Record{
		{ID: 0, Group: 0, VsyncPeriod: timing.FPSToPeriod(60)},
		{ID: 1, Group: 0, VsyncPeriod: timing.FPSToPeriod(90)},
		{ID: 2, Group: 1, VsyncPeriod: timing.FPSToPeriod(120)},
	})
	if err != nil {
		panic(err)
	}
	return cat
}

func TestNew(t *testing.T) {
	Convey("Given a three-timing catalog", t, func() {
		cat := singleGroupCatalog()

		Convey("When constructing over a known current config", func() {
			s := New(cat, 1)

			Convey("Then the current timing matches it", func() {
				So(s.CurrentTiming().ID, ShouldEqual, timing.ConfigID(1))
			})

			Convey("Then the initial policy allows the whole catalog", func() {
				So(s.Available(), ShouldHaveLength, 3)
				So(s.AdminPolicy().DefaultConfig, ShouldEqual, timing.ConfigID(1))
				So(s.OverrideActive(), ShouldBeFalse)
			})

			Convey("Then availability is ordered lowest rate first", func() {
				av := s.Available()
				So(av[0].FPS, ShouldBeLessThan, av[1].FPS)
				So(av[1].FPS, ShouldBeLessThan, av[2].FPS)
			})
		})

		Convey("When constructing over an unknown current config", func() {
			Convey("Then it panics", func() {
				So(func() { New(cat, 42) }, ShouldPanic)
			})
		})
	})
}

func TestSetAdminPolicy(t *testing.T) {
	Convey("Given a selector over a three-timing catalog", t, func() {
		s := New(singleGroupCatalog(), 0)

		Convey("When capping the maximum refresh rate at 90", func() {
			res, err := s.SetAdminPolicy(Policy{DefaultConfig: 0, MinFPS: 0, MaxFPS: 90})

			Convey("Then the write counts as updated", func() {
				So(err, ShouldBeNil)
				So(res, ShouldEqual, PolicyUpdated)
			})

			Convey("Then the 120Hz timing is no longer available", func() {
				So(s.Available(), ShouldHaveLength, 2)
				So(s.IsAllowed(2), ShouldBeFalse)
				So(s.IsAllowed(0), ShouldBeTrue)
			})

			Convey("And when writing the identical policy again", func() {
				res, err := s.SetAdminPolicy(Policy{DefaultConfig: 0, MinFPS: 0, MaxFPS: 90})

				Convey("Then the write counts as unchanged", func() {
					So(err, ShouldBeNil)
					So(res, ShouldEqual, PolicyUnchanged)
				})
			})
		})

		Convey("When the minimum exceeds the maximum", func() {
			before := s.EffectivePolicy()
			_, err := s.SetAdminPolicy(Policy{DefaultConfig: 0, MinFPS: 90, MaxFPS: 60})

			Convey("Then the write is rejected", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, ErrInvalidPolicy), ShouldBeTrue)
			})

			Convey("Then no state was mutated", func() {
				So(s.EffectivePolicy(), ShouldResemble, before)
				So(s.Available(), ShouldHaveLength, 3)
			})
		})

		Convey("When the default config is not in the catalog", func() {
			_, err := s.SetAdminPolicy(Policy{DefaultConfig: 42, MinFPS: 0, MaxFPS: 120})

			Convey("Then the write is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When an exact range pins a single timing", func() {
			res, err := s.SetAdminPolicy(Policy{DefaultConfig: 1, MinFPS: 90, MaxFPS: 90})

			Convey("Then only that timing is available", func() {
				So(err, ShouldBeNil)
				So(res, ShouldEqual, PolicyUpdated)
				av := s.Available()
				So(av, ShouldHaveLength, 1)
				So(av[0].ID, ShouldEqual, timing.ConfigID(1))
			})
		})
	})
}

func TestSetOverridePolicy(t *testing.T) {
	Convey("Given a selector with an admin policy capped at 90", t, func() {
		s := New(singleGroupCatalog(), 0)
		_, err := s.SetAdminPolicy(Policy{DefaultConfig: 0, MinFPS: 0, MaxFPS: 90})
		So(err, ShouldBeNil)

		Convey("When installing an override allowing the full range", func() {
			res, err := s.SetOverridePolicy(&Policy{DefaultConfig: 2, MinFPS: 0, MaxFPS: 120})

			Convey("Then the override becomes the effective policy", func() {
				So(err, ShouldBeNil)
				So(res, ShouldEqual, PolicyUpdated)
				So(s.OverrideActive(), ShouldBeTrue)
				So(s.EffectivePolicy().DefaultConfig, ShouldEqual, timing.ConfigID(2))
				So(s.Available(), ShouldHaveLength, 3)
			})

			Convey("Then the admin policy is untouched underneath", func() {
				So(s.AdminPolicy().MaxFPS, ShouldEqual, 90)
			})

			Convey("And when the admin policy changes while shadowed", func() {
				res, err := s.SetAdminPolicy(Policy{DefaultConfig: 0, MinFPS: 0, MaxFPS: 60})

				Convey("Then the effective policy is unchanged", func() {
					So(err, ShouldBeNil)
					So(res, ShouldEqual, PolicyUnchanged)
					So(s.Available(), ShouldHaveLength, 3)
				})

				Convey("But the stored admin policy did move", func() {
					So(s.AdminPolicy().MaxFPS, ShouldEqual, 60)
				})
			})

			Convey("And when clearing the override", func() {
				res, err := s.SetOverridePolicy(nil)

				Convey("Then the admin policy applies again", func() {
					So(err, ShouldBeNil)
					So(res, ShouldEqual, PolicyUpdated)
					So(s.OverrideActive(), ShouldBeFalse)
					So(s.Available(), ShouldHaveLength, 2)
				})
			})
		})

		Convey("When installing an override identical to the effective policy", func() {
			res, err := s.SetOverridePolicy(&Policy{DefaultConfig: 0, MinFPS: 0, MaxFPS: 90})

			Convey("Then the write counts as unchanged but the override is active", func() {
				So(err, ShouldBeNil)
				So(res, ShouldEqual, PolicyUnchanged)
				So(s.OverrideActive(), ShouldBeTrue)
			})
		})

		Convey("When clearing with no override set", func() {
			res, err := s.SetOverridePolicy(nil)

			Convey("Then nothing changes", func() {
				So(err, ShouldBeNil)
				So(res, ShouldEqual, PolicyUnchanged)
			})
		})

		Convey("When the override fails validation", func() {
			_, err := s.SetOverridePolicy(&Policy{DefaultConfig: 0, MinFPS: 120, MaxFPS: 60})

			Convey("Then it is rejected and no override is installed", func() {
				So(err, ShouldNotBeNil)
				So(s.OverrideActive(), ShouldBeFalse)
			})
		})
	})
}

func TestPolicyBounds(t *testing.T) {
	Convey("Given a selector over a three-timing catalog", t, func() {
		s := New(singleGroupCatalog(), 0)

		Convey("Then the policy bounds track availability", func() {
			So(s.MinByPolicy().ID, ShouldEqual, timing.ConfigID(0))
			So(s.MaxByPolicy().ID, ShouldEqual, timing.ConfigID(2))
		})

		Convey("Then the supported bounds ignore policy", func() {
			_, err := s.SetAdminPolicy(Policy{DefaultConfig: 0, MinFPS: 0, MaxFPS: 60})
			So(err, ShouldBeNil)
			So(s.MinSupported().FPS, ShouldAlmostEqual, 60, timing.FPSEpsilon)
			So(s.MaxSupported().FPS, ShouldAlmostEqual, 120, timing.FPSEpsilon)
		})

		Convey("When the policy range matches no timing at all", func() {
			_, err := s.SetAdminPolicy(Policy{DefaultConfig: 0, MinFPS: 200, MaxFPS: 300})
			So(err, ShouldBeNil)

			Convey("Then the bounds fall back to the policy default", func() {
				So(s.Available(), ShouldBeEmpty)
				So(s.MinByPolicy().ID, ShouldEqual, timing.ConfigID(0))
				So(s.MaxByPolicy().ID, ShouldEqual, timing.ConfigID(0))
			})

			Convey("Then selection falls back to the policy default too", func() {
				best, _ := s.SelectBestTiming([]vote.LayerRequirement{
					{Name: "game", Vote: vote.Max},
				}, false)
				So(best.ID, ShouldEqual, timing.ConfigID(0))
			})
		})
	})
}

func TestGroupSwitching(t *testing.T) {
	Convey("Given timings split across two config groups", t, func() {
		s := New(multiGroupCatalog(), 0)

		Convey("Then only the default config's group is available", func() {
			So(s.Available(), ShouldHaveLength, 2)
			So(s.IsAllowed(2), ShouldBeFalse)
		})

		Convey("Then a Max vote tops out inside the group", func() {
			best := s.SelectTiming([]vote.LayerRequirement{{Vote: vote.Max}})
			So(best.ID, ShouldEqual, timing.ConfigID(1))
		})

		Convey("When the policy allows group switching", func() {
			_, err := s.SetAdminPolicy(Policy{
				DefaultConfig: 0, MinFPS: 0, MaxFPS: 120, AllowGroupSwitching: true,
			})
			So(err, ShouldBeNil)

			Convey("Then all groups are available and Max reaches 120Hz", func() {
				So(s.Available(), ShouldHaveLength, 3)
				best := s.SelectTiming([]vote.LayerRequirement{{Vote: vote.Max}})
				So(best.ID, ShouldEqual, timing.ConfigID(2))
			})
		})
	})
}

func TestCurrentTiming(t *testing.T) {
	Convey("Given a selector over a three-timing catalog", t, func() {
		s := New(singleGroupCatalog(), 0)

		Convey("When the hardware confirms a switch", func() {
			s.SetCurrentTiming(2)

			Convey("Then the current timing follows", func() {
				So(s.CurrentTiming().ID, ShouldEqual, timing.ConfigID(2))
			})

			Convey("And when the policy stops allowing it", func() {
				_, err := s.SetAdminPolicy(Policy{DefaultConfig: 0, MinFPS: 0, MaxFPS: 90})
				So(err, ShouldBeNil)

				Convey("Then the policy view reports the default instead", func() {
					So(s.CurrentTiming().ID, ShouldEqual, timing.ConfigID(2))
					So(s.CurrentTimingByPolicy().ID, ShouldEqual, timing.ConfigID(0))
				})
			})
		})

		Convey("When the policy still allows the current timing", func() {
			s.SetCurrentTiming(1)

			Convey("Then the policy view returns it as-is", func() {
				So(s.CurrentTimingByPolicy().ID, ShouldEqual, timing.ConfigID(1))
			})
		})

		Convey("When the config id is unknown", func() {
			Convey("Then it panics", func() {
				So(func() { s.SetCurrentTiming(42) }, ShouldPanic)
			})
		})
	})
}

func TestSelectBestTiming(t *testing.T) {
	Convey("Given a selector over 60/90/120Hz timings", t, func() {
		s := New(singleGroupCatalog(), 0)

		Convey("When no layer is visible", func() {
			best, considered := s.SelectBestTiming(nil, false)

			Convey("Then the policy default wins", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(0))
				So(considered, ShouldBeFalse)
			})
		})

		Convey("When every layer abstains", func() {
			best, _ := s.SelectBestTiming([]vote.LayerRequirement{
				{Name: "wallpaper", Vote: vote.NoVote},
				{Name: "statusbar", Vote: vote.NoVote},
			}, false)

			Convey("Then the policy default wins", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(0))
			})
		})

		Convey("When only Min and NoVote layers are visible", func() {
			best, _ := s.SelectBestTiming([]vote.LayerRequirement{
				{Name: "video", Vote: vote.Min},
				{Name: "wallpaper", Vote: vote.NoVote},
			}, false)

			Convey("Then the lowest available rate wins", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(0))
			})
		})

		Convey("When only Max and NoVote layers are visible", func() {
			best, _ := s.SelectBestTiming([]vote.LayerRequirement{
				{Name: "game", Vote: vote.Max},
				{Name: "wallpaper", Vote: vote.NoVote},
			}, false)

			Convey("Then the highest available rate wins", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(2))
			})
		})

		Convey("When a heuristic layer wants 90fps", func() {
			best, _ := s.SelectBestTiming([]vote.LayerRequirement{
				{Name: "scroller", Vote: vote.Heuristic, DesiredFPS: 90, Weight: 1},
			}, false)

			Convey("Then the 90Hz timing wins", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(1))
			})
		})

		Convey("When a heuristic layer wants 60fps", func() {
			best, _ := s.SelectBestTiming([]vote.LayerRequirement{
				{Name: "video", Vote: vote.Heuristic, DesiredFPS: 60, Weight: 1},
			}, false)

			Convey("Then the tie between 60Hz and 120Hz goes to the lower rate", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(0))
			})
		})

		Convey("When a Max vote joins a heuristic 60fps layer", func() {
			best, _ := s.SelectBestTiming([]vote.LayerRequirement{
				{Name: "video", Vote: vote.Heuristic, DesiredFPS: 60, Weight: 1},
				{Name: "game", Vote: vote.Max},
			}, false)

			Convey("Then the same tie resolves to the higher rate", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(2))
			})
		})

		Convey("When an exact-or-multiple layer wants 60fps", func() {
			best, _ := s.SelectBestTiming([]vote.LayerRequirement{
				{Name: "camera", Vote: vote.ExplicitExactOrMultiple, DesiredFPS: 60, Weight: 1},
			}, false)

			Convey("Then 90Hz is disqualified and 60Hz wins the tie with 120Hz", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(0))
			})
		})

		Convey("When an exact-or-multiple layer wants 45fps", func() {
			best, _ := s.SelectBestTiming([]vote.LayerRequirement{
				{Name: "camera", Vote: vote.ExplicitExactOrMultiple, DesiredFPS: 45, Weight: 1},
			}, false)

			Convey("Then only 90Hz divides it evenly and wins", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(1))
			})
		})

		Convey("When a scoring layer abstains through a zero weight", func() {
			best, _ := s.SelectBestTiming([]vote.LayerRequirement{
				{Name: "hidden", Vote: vote.Heuristic, DesiredFPS: 90, Weight: 0},
			}, false)

			Convey("Then all candidates tie at zero and the lowest wins", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(0))
			})
		})

		Convey("When a heuristic layer carries no desired rate", func() {
			best, _ := s.SelectBestTiming([]vote.LayerRequirement{
				{Name: "odd", Vote: vote.Heuristic, DesiredFPS: 0, Weight: 1},
			}, false)

			Convey("Then it contributes nothing and the lowest wins", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(0))
			})
		})

		Convey("When repeated with the same input", func() {
			layers := []vote.LayerRequirement{
				{Name: "a", Vote: vote.Heuristic, DesiredFPS: 90, Weight: 0.7},
				{Name: "b", Vote: vote.ExplicitDefault, DesiredFPS: 24, Weight: 0.4},
			}
			first, _ := s.SelectBestTiming(layers, false)

			Convey("Then the outcome never varies", func() {
				for i := 0; i < 20; i++ {
					got, _ := s.SelectBestTiming(layers, false)
					So(got.ID, ShouldEqual, first.ID)
				}
			})
		})
	})
}

func TestLayerWeights(t *testing.T) {
	Convey("Given a 60/90Hz catalog and two competing heuristic layers", t, func() {
		cat, err := timing.NewCatalog([]timing.Record{
			{ID: 0, Group: 0, VsyncPeriod: timing.FPSToPeriod(60)},
			{ID: 1, Group: 0, VsyncPeriod: timing.FPSToPeriod(90)},
		})
		So(err, ShouldBeNil)
		s := New(cat, 0)

		Convey("When the 60fps layer carries the larger weight", func() {
			best, _ := s.SelectBestTiming([]vote.LayerRequirement{
				{Name: "video", Vote: vote.Heuristic, DesiredFPS: 60, Weight: 1},
				{Name: "scroller", Vote: vote.Heuristic, DesiredFPS: 90, Weight: 0.3},
			}, false)

			Convey("Then 60Hz wins", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(0))
			})
		})

		Convey("When the 90fps layer carries the larger weight", func() {
			best, _ := s.SelectBestTiming([]vote.LayerRequirement{
				{Name: "video", Vote: vote.Heuristic, DesiredFPS: 60, Weight: 0.3},
				{Name: "scroller", Vote: vote.Heuristic, DesiredFPS: 90, Weight: 1},
			}, false)

			Convey("Then 90Hz wins", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(1))
			})
		})
	})
}

func TestTouchBoost(t *testing.T) {
	Convey("Given a selector over 60/90/120Hz timings", t, func() {
		s := New(singleGroupCatalog(), 0)

		Convey("When touch is active over a low-rate content choice", func() {
			best, considered := s.SelectBestTiming([]vote.LayerRequirement{
				{Name: "video", Vote: vote.Heuristic, DesiredFPS: 90, Weight: 1},
			}, true)

			Convey("Then the highest rate wins and touch is reported", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(2))
				So(considered, ShouldBeTrue)
			})
		})

		Convey("When every layer abstains while touch is active", func() {
			best, considered := s.SelectBestTiming([]vote.LayerRequirement{
				{Name: "wallpaper", Vote: vote.NoVote},
				{Name: "statusbar", Vote: vote.NoVote},
			}, true)

			Convey("Then the idle screen is still boosted to the highest rate", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(2))
				So(considered, ShouldBeTrue)
			})
		})

		Convey("When no layer is visible while touch is active", func() {
			best, considered := s.SelectBestTiming(nil, true)

			Convey("Then the policy default stands", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(0))
				So(considered, ShouldBeFalse)
			})
		})

		Convey("When the policy pins abstaining layers to a single timing", func() {
			_, err := s.SetAdminPolicy(Policy{DefaultConfig: 0, MinFPS: 0, MaxFPS: 60})
			So(err, ShouldBeNil)

			best, considered := s.SelectBestTiming([]vote.LayerRequirement{
				{Name: "wallpaper", Vote: vote.NoVote},
			}, true)

			Convey("Then touch cannot change the outcome", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(0))
				So(considered, ShouldBeFalse)
			})
		})

		Convey("When content already picked the highest rate", func() {
			best, considered := s.SelectBestTiming([]vote.LayerRequirement{
				{Vote: vote.Max},
			}, true)

			Convey("Then touch did not change the outcome", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(2))
				So(considered, ShouldBeFalse)
			})
		})

		Convey("When an explicit-default layer is visible", func() {
			best, considered := s.SelectBestTiming([]vote.LayerRequirement{
				{Name: "player", Vote: vote.ExplicitDefault, DesiredFPS: 30, Weight: 1},
			}, true)

			Convey("Then the boost is skipped and the app's rate is served", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(0))
				So(considered, ShouldBeFalse)
			})
		})

		Convey("When touch is inactive", func() {
			best, considered := s.SelectBestTiming([]vote.LayerRequirement{
				{Name: "video", Vote: vote.Heuristic, DesiredFPS: 60, Weight: 1},
			}, false)

			Convey("Then scoring alone decides", func() {
				So(best.ID, ShouldEqual, timing.ConfigID(0))
				So(considered, ShouldBeFalse)
			})
		})

		Convey("Given the boost is disabled", func() {
			s := New(singleGroupCatalog(), 0, WithTouchBoost(false))

			Convey("When touch is active", func() {
				best, considered := s.SelectBestTiming([]vote.LayerRequirement{
					{Name: "video", Vote: vote.Heuristic, DesiredFPS: 60, Weight: 1},
				}, true)

				Convey("Then nothing is boosted", func() {
					So(best.ID, ShouldEqual, timing.ConfigID(0))
					So(considered, ShouldBeFalse)
				})
			})
		})
	})
}

func TestConcurrentAccess(t *testing.T) {
	Convey("Given concurrent selections and policy writes", t, func() {
		s := New(singleGroupCatalog(), 0)
		layers := []vote.LayerRequirement{
			{Name: "a", Vote: vote.Heuristic, DesiredFPS: 90, Weight: 0.8},
			{Name: "b", Vote: vote.Max},
		}

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					best, _ := s.SelectBestTiming(layers, j%2 == 0)
					if _, ok := s.Catalog().ByID(best.ID); !ok {
						t.Error("selected timing not in catalog")
					}
				}
			}()
			go func(n int) {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					max := 90.0
					if (n+j)%2 == 0 {
						max = 120
					}
					_, err := s.SetAdminPolicy(Policy{DefaultConfig: 0, MinFPS: 0, MaxFPS: max})
					if err != nil {
						t.Error(err)
					}
				}
			}(i)
		}
		wg.Wait()

		Convey("Then the selector still answers coherently", func() {
			So(s.Available(), ShouldNotBeEmpty)
			best, _ := s.SelectBestTiming(layers, false)
			So(s.IsAllowed(best.ID), ShouldBeTrue)
		})
	})
}
