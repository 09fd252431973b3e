package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"classroom-quiz"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres    Postgres
	Redis       Redis
	Security    Security
	Session     Session
	Leaderboard Leaderboard
	Questions   Questions
	QuestionGen QuestionGen
	Events      Events
	Logging     Logging
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders the keyword/value connection string understood by pgx.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Redis holds session state + cache configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores the identity provider settings used to verify bearer tokens.
type Security struct {
	JWTSecret string `env:"JWT_SECRET,notEmpty"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:""`
	// Empty allows every origin.
	AllowedOrigins []string `env:"WS_ALLOWED_ORIGINS" envSeparator:"," envDefault:""`
}

// Session groups live game defaults.
type Session struct {
	RevealDelay            time.Duration `env:"SESSION_REVEAL_DELAY" envDefault:"5s"`
	TickInterval           time.Duration `env:"SESSION_TICK_INTERVAL" envDefault:"1s"`
	ShortAnswerMatch       string        `env:"SESSION_SHORT_ANSWER_MATCH" envDefault:"exact"`
	AdvanceWhenAllAnswered bool          `env:"SESSION_ADVANCE_WHEN_ALL_ANSWERED" envDefault:"false"`
	StateTTL               time.Duration `env:"SESSION_STATE_TTL" envDefault:"2h"`
	LockTTL                time.Duration `env:"SESSION_LOCK_TTL" envDefault:"6h"`
	DefaultPoints          int           `env:"SESSION_DEFAULT_POINTS" envDefault:"1"`
	DefaultQuestionSeconds int           `env:"SESSION_DEFAULT_QUESTION_SECONDS" envDefault:"30"`
}

// Leaderboard governs snapshot persistence of live sessions.
type Leaderboard struct {
	SnapshotInterval time.Duration `env:"LEADERBOARD_SNAPSHOT_INTERVAL" envDefault:"1m"`
}

// Questions configures question loading.
type Questions struct {
	CacheTTL     time.Duration `env:"QUESTION_CACHE_TTL" envDefault:"10m"`
	FetchTimeout time.Duration `env:"QUESTION_FETCH_TIMEOUT_SECONDS" envDefault:"4s"`
}

// QuestionGen configures the external question generation service.
type QuestionGen struct {
	URL         string        `env:"QGEN_URL" envDefault:""`
	APIKey      string        `env:"QGEN_API_KEY" envDefault:""`
	HTTPTimeout time.Duration `env:"QGEN_HTTP_TIMEOUT" envDefault:"20s"`
}

// Events configures the in-process bus and the optional Kafka forwarder.
type Events struct {
	BufferSize   int64    `env:"EVENTS_BUFFER_SIZE" envDefault:"64"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:""`
	KafkaTopic   string   `env:"KAFKA_SESSION_TOPIC" envDefault:"classroom.session-events"`
}

// Logging configures log verbosity.
type Logging struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadPostgres parses only the database group; used by the migrator.
func LoadPostgres() (*Postgres, error) {
	cfg := &Postgres{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	return cfg, nil
}
