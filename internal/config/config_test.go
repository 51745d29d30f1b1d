package config_test

import (
	"testing"
	"time"

	"github.com/nkast/ratekeeper/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9150")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.FrameMarginUS, convey.ShouldEqual, 800)
			convey.So(cfg.TouchBoost, convey.ShouldBeTrue)
			convey.So(cfg.CurrentConfig, convey.ShouldEqual, 0)
		})

		convey.Convey("And the default timing table covers 60/90/120Hz", func() {
			convey.So(len(cfg.Timings), convey.ShouldEqual, 3)
			convey.So(cfg.Timings[0].FPS, convey.ShouldEqual, 60.0)
			convey.So(cfg.Timings[1].FPS, convey.ShouldEqual, 90.0)
			convey.So(cfg.Timings[2].FPS, convey.ShouldEqual, 120.0)
		})

		convey.Convey("And the default policy is unrestricted", func() {
			convey.So(cfg.Policy.DefaultConfig, convey.ShouldEqual, 0)
			convey.So(cfg.Policy.MinFPS, convey.ShouldEqual, 0.0)
			convey.So(cfg.Policy.MaxFPS, convey.ShouldEqual, 1000.0)
			convey.So(cfg.Policy.AllowGroupSwitching, convey.ShouldBeFalse)
		})

		convey.Convey("And FrameMargin converts to a duration", func() {
			convey.So(cfg.FrameMargin(), convey.ShouldEqual, 800*time.Microsecond)
		})
	})
}
