// Package config はサーバーの設定を読み込みます。
//
// 設定は次の順に重ねられ、後のものが優先されます: 組み込みの既定値、
// CONFIG_FILE で指定した YAML ファイル、.env ファイル、環境変数、コマンドライン引数。
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"shooter/server/application"
	"shooter/server/domain"
	"shooter/utils"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Addr string `yaml:"addr"`
	Port string `yaml:"port"`

	TickRate       float64 `yaml:"tick_rate"` // ms
	FireCooldown   int64   `yaml:"fire_cooldown"`
	BulletSpeed    float64 `yaml:"bullet_speed"`
	PlayerRadius   float64 `yaml:"player_radius"`
	BulletRadius   float64 `yaml:"bullet_radius"`
	Distance       float64 `yaml:"distance"`
	BroadcastEvery int     `yaml:"broadcast_every"`

	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`

	LogLevel    string `yaml:"log_level"`
	OTelEnabled bool   `yaml:"otel_enabled"`
	ServiceName string `yaml:"service_name"`
}

func Default() Config {
	return Config{
		Addr:              "localhost",
		Port:              "9090",
		TickRate:          1000.0 / 60,
		FireCooldown:      250,
		BulletSpeed:       500,
		PlayerRadius:      10,
		BulletRadius:      5,
		Distance:          1000,
		BroadcastEvery:    3,
		HeartbeatInterval: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
		LogLevel:          "info",
		ServiceName:       "shooter",
	}
}

// Load は全ての設定ソースを重ねて検証済みの Config を返します。
// envFile が存在しない場合は無視されます。
func Load(args []string, envFile string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load %s: %w", envFile, err)
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.parseFlags(args); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	var err error

	c.Addr = utils.GetEnvDefault("ADDR", c.Addr)
	c.Port = utils.GetEnvDefault("PORT", c.Port)
	c.LogLevel = utils.GetEnvDefault("LOG_LEVEL", c.LogLevel)
	c.ServiceName = utils.GetEnvDefault("OTEL_SERVICE_NAME", c.ServiceName)

	c.TickRate, err = utils.GetEnvFloat("TICK_RATE", c.TickRate)
	collect(err)
	c.FireCooldown, err = utils.GetEnvInt64("FIRE_COOLDOWN", c.FireCooldown)
	collect(err)
	c.BulletSpeed, err = utils.GetEnvFloat("BULLET_SPEED", c.BulletSpeed)
	collect(err)
	c.PlayerRadius, err = utils.GetEnvFloat("PLAYER_RADIUS", c.PlayerRadius)
	collect(err)
	c.BulletRadius, err = utils.GetEnvFloat("BULLET_RADIUS", c.BulletRadius)
	collect(err)
	c.Distance, err = utils.GetEnvFloat("DISTANCE", c.Distance)
	collect(err)

	broadcastEvery, err := utils.GetEnvInt64("BROADCAST_EVERY", int64(c.BroadcastEvery))
	collect(err)
	c.BroadcastEvery = int(broadcastEvery)

	c.HeartbeatInterval, err = utils.GetEnvDuration("HEARTBEAT_INTERVAL", c.HeartbeatInterval)
	collect(err)
	c.IdleTimeout, err = utils.GetEnvDuration("IDLE_TIMEOUT", c.IdleTimeout)
	collect(err)
	c.OTelEnabled, err = utils.GetEnvBool("OTEL_ENABLED", c.OTelEnabled)
	collect(err)

	return errors.Join(errs...)
}

func (c *Config) parseFlags(args []string) error {
	flags := flag.NewFlagSet("shooter", flag.ContinueOnError)
	flags.StringVar(&c.Addr, "addr", c.Addr, "listen address")
	flags.StringVar(&c.Port, "port", c.Port, "listen port")
	flags.Float64Var(&c.TickRate, "tick-rate", c.TickRate, "simulation tick interval in ms")
	flags.Int64Var(&c.FireCooldown, "fire-cooldown", c.FireCooldown, "minimum ms between two shots")
	flags.Float64Var(&c.BulletSpeed, "bullet-speed", c.BulletSpeed, "bullet speed in units per second")
	flags.Float64Var(&c.PlayerRadius, "player-radius", c.PlayerRadius, "player collision radius")
	flags.Float64Var(&c.BulletRadius, "bullet-radius", c.BulletRadius, "bullet collision radius")
	flags.Float64Var(&c.Distance, "distance", c.Distance, "distance of each player from the origin")
	flags.IntVar(&c.BroadcastEvery, "broadcast-every", c.BroadcastEvery, "ticks between state broadcasts")
	flags.DurationVar(&c.HeartbeatInterval, "heartbeat-interval", c.HeartbeatInterval, "ping interval, 0 disables")
	flags.DurationVar(&c.IdleTimeout, "idle-timeout", c.IdleTimeout, "close sessions idle for this long, 0 disables")
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	flags.BoolVar(&c.OTelEnabled, "otel", c.OTelEnabled, "export traces, metrics and logs over OTLP")
	flags.StringVar(&c.ServiceName, "service-name", c.ServiceName, "OpenTelemetry service name")
	return flags.Parse(args)
}

// Validate は設定値の整合性を検査します。
func (c Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if !utils.IsFinite(c.TickRate) || c.TickRate <= 0 {
		invalid("tick_rate must be positive, got %v", c.TickRate)
	}
	if !utils.IsFinite(c.BulletSpeed) || c.BulletSpeed <= 0 {
		invalid("bullet_speed must be positive, got %v", c.BulletSpeed)
	}
	if !utils.IsFinite(c.Distance) || c.Distance <= 0 {
		invalid("distance must be positive, got %v", c.Distance)
	}
	if !utils.IsFinite(c.PlayerRadius) || c.PlayerRadius < 0 {
		invalid("player_radius must not be negative, got %v", c.PlayerRadius)
	}
	if !utils.IsFinite(c.BulletRadius) || c.BulletRadius < 0 {
		invalid("bullet_radius must not be negative, got %v", c.BulletRadius)
	}
	if c.FireCooldown < 0 {
		invalid("fire_cooldown must not be negative, got %d", c.FireCooldown)
	}
	if c.BroadcastEvery < 1 {
		invalid("broadcast_every must be at least 1, got %d", c.BroadcastEvery)
	}
	if c.IdleTimeout > 0 && (c.HeartbeatInterval <= 0 || c.HeartbeatInterval >= c.IdleTimeout) {
		invalid("heartbeat_interval (%s) must be positive and shorter than idle_timeout (%s)", c.HeartbeatInterval, c.IdleTimeout)
	}
	if _, err := c.Level(); err != nil {
		invalid("log_level: %v", err)
	}
	return errors.Join(errs...)
}

// Level は LogLevel を slog.Level に変換します。
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}

func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Addr, c.Port)
}

func (c Config) Duel() application.DuelConfig {
	return application.DuelConfig{
		Game: application.GameConfig{
			FireCooldown: c.FireCooldown,
			BulletSpeed:  c.BulletSpeed,
			PlayerRadius: c.PlayerRadius,
			BulletRadius: c.BulletRadius,
			Distance:     c.Distance,
		},
		BroadcastEvery: c.BroadcastEvery,
	}
}

func (c Config) Endpoint() domain.EndpointConfig {
	return domain.EndpointConfig{
		HeartbeatInterval: c.HeartbeatInterval,
		IdleTimeout:       c.IdleTimeout,
	}
}

func (c Config) Room() domain.RoomConfig {
	return domain.RoomConfig{TickRate: c.TickRate}
}
