package config_test

import (
	"context"
	"errors"
	"os"
	"runtime"
	"testing"

	"github.com/okian/skillboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.Model, convey.ShouldEqual, config.ModelPlackettLuce)
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.Elo.K, convey.ShouldEqual, 32)
			convey.So(cfg.PlackettLuce.Margin, convey.ShouldEqual, 2)
			convey.So(cfg.PlackettLuce.Beta, convey.ShouldBeNil)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given invalid configurations", t, func() {
		cases := map[string]func(c *config.Config){
			"empty addr":         func(c *config.Config) { c.Addr = " " },
			"unknown model":      func(c *config.Config) { c.Model = "glicko" },
			"unknown store":      func(c *config.Config) { c.Store = "redis" },
			"postgres no dsn":    func(c *config.Config) { c.Store = config.StorePostgres },
			"zero queue":         func(c *config.Config) { c.QueueSize = 0 },
			"zero limit":         func(c *config.Config) { c.MaxLeaderboardLimit = 0 },
			"non-positive sigma": func(c *config.Config) { c.PlackettLuce.Sigma = 0 },
			"zero sigma floor":   func(c *config.Config) { c.Elo.SigmaFloor = 0 },
		}

		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()

			convey.Convey("Then "+name+" is rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Elo.SigmaFloor, convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SKILLBOARD_ADDR", ":8080")
			_ = os.Setenv("SKILLBOARD_QUEUE_SIZE", "500")
			_ = os.Setenv("SKILLBOARD_MODEL", "elo")
			_ = os.Setenv("SKILLBOARD_ELO_SIGMA_K", "12")
			_ = os.Setenv("SKILLBOARD_PLACKETT_LUCE_TAU", "0")
			_ = os.Setenv("SKILLBOARD_PLACKETT_LUCE_LIMIT_SIGMA", "true")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.Model, convey.ShouldEqual, config.ModelElo)
				convey.So(cfg.Elo.SigmaK, convey.ShouldEqual, 12)
				convey.So(cfg.Elo.K, convey.ShouldEqual, 32)
				convey.So(cfg.PlackettLuce.Tau, convey.ShouldNotBeNil)
				convey.So(*cfg.PlackettLuce.Tau, convey.ShouldEqual, 0)
				convey.So(cfg.PlackettLuce.LimitSigma, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
queue_size: 300
worker_count: 24
plackett_luce:
  mu: 1500
  sigma: 500
`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SKILLBOARD_CONFIG", tmpFile)
			_ = os.Setenv("SKILLBOARD_WORKER_COUNT", "32")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
				convey.So(cfg.PlackettLuce.Mu, convey.ShouldEqual, 1500)
				convey.So(cfg.PlackettLuce.Kappa, convey.ShouldEqual, 0.0001)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SKILLBOARD_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SKILLBOARD_CONFIG", "/non/existent/skillboard.yaml")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the postgres store has no database url", func() {
			_ = os.Setenv("SKILLBOARD_STORE", "postgres")

			_, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	envVars := []string{
		"SKILLBOARD_CONFIG",
		"SKILLBOARD_ADDR",
		"SKILLBOARD_QUEUE_SIZE",
		"SKILLBOARD_WORKER_COUNT",
		"SKILLBOARD_MODEL",
		"SKILLBOARD_STORE",
		"SKILLBOARD_ELO_SIGMA_K",
		"SKILLBOARD_PLACKETT_LUCE_TAU",
		"SKILLBOARD_PLACKETT_LUCE_LIMIT_SIGMA",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "skillboard-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
