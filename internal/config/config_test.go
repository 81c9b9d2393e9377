package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/ranking/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Backend, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.MongoDatabase, convey.ShouldEqual, "player-ranking")
			convey.So(cfg.MongoCollection, convey.ShouldEqual, "players")
			convey.So(cfg.MongoTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.RedisKey, convey.ShouldEqual, "players")
			convey.So(cfg.CORSAllowedOrigins, convey.ShouldResemble, []string{"*"})
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with invalid combinations", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":       func(c *config.Config) { c.Addr = "" },
			"unknown backend":  func(c *config.Config) { c.Backend = "postgres" },
			"mongo without db": func(c *config.Config) { c.Backend = config.BackendMongo; c.MongoDatabase = "" },
			"mongo timeout":    func(c *config.Config) { c.Backend = config.BackendMongo; c.MongoTimeoutMS = 0 },
			"redis without key": func(c *config.Config) {
				c.Backend = config.BackendRedis
				c.RedisKey = ""
			},
		}

		for name, mutate := range cases {
			convey.Convey("When validating with "+name, func() {
				cfg := config.New()
				mutate(cfg)
				err := cfg.Validate()

				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})

	convey.Convey("Given a backend with odd casing", t, func() {
		cfg := config.New()
		cfg.Backend = " Redis "

		convey.Convey("Then it is normalized", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			convey.So(cfg.Backend, convey.ShouldEqual, config.BackendRedis)
		})
	})
}
