// Command userguard-server runs the identity API against real backends.
//
// Configuration comes from the environment (a .env file is loaded when
// present):
//
//	LISTEN_ADDR   listen address, default :8080
//	REDIS_ADDR    redis address, default 127.0.0.1:6379
//	DATABASE_URL  postgres DSN (required)
//	TOKEN_SECRET  HS256 signing key, at least 32 bytes (required)
package main

import (
	"net/http"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	userguard "github.com/identware/userguard"
	"github.com/identware/userguard/httpapi"
	"github.com/identware/userguard/metrics/export/prometheus"
	"github.com/identware/userguard/provider/postgres"
)

func main() {
	_ = godotenv.Load()
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "userguard").Logger()

	dsn := os.Getenv("DATABASE_URL")
	secret := os.Getenv("TOKEN_SECRET")
	if dsn == "" || secret == "" {
		log.Fatal().Msg("DATABASE_URL and TOKEN_SECRET are required")
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connect")
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{Addr: envOr("REDIS_ADDR", "127.0.0.1:6379")})
	defer rdb.Close()

	cfg := userguard.DefaultConfig()
	cfg.Token.Secret = []byte(secret)

	engine, err := userguard.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(log).
		WithAccountProvider(postgres.NewAccountProvider(db)).
		WithRoleProvider(postgres.NewRoleProvider(db)).
		Build()
	if err != nil {
		log.Fatal().Err(err).Msg("build engine")
	}
	defer engine.Close()

	api, err := httpapi.NewServer(engine, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build server")
	}

	mux := http.NewServeMux()
	mux.Handle("/", api)
	mux.Handle("GET /metrics", prometheus.NewExporter(engine).Handler())

	addr := envOr("LISTEN_ADDR", ":8080")
	log.Info().Str("addr", addr).Msg("listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
