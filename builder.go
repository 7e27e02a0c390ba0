package userguard

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/identware/userguard/internal/audit"
	"github.com/identware/userguard/internal/limiters"
	"github.com/identware/userguard/password"
	"github.com/identware/userguard/permission"
	"github.com/identware/userguard/session"
	"github.com/identware/userguard/token"
	"github.com/identware/userguard/validate"
)

// Builder assembles an [Engine]. Zero or one call to each With method,
// then Build exactly once.
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	log      zerolog.Logger
	accounts AccountProvider
	roles    RoleProvider
	sink     AuditSink

	built bool
}

// New returns a builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		log:    zerolog.Nop(),
	}
}

// WithConfig replaces the whole configuration. The builder keeps its own
// copy; later mutations of cfg by the caller have no effect.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the cache client shared by tokens, sessions, limiters,
// and the role registry.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the structured logger. Without it the engine is silent.
func (b *Builder) WithLogger(log zerolog.Logger) *Builder {
	b.log = log
	return b
}

// WithAccountProvider sets the account database adapter.
func (b *Builder) WithAccountProvider(p AccountProvider) *Builder {
	b.accounts = p
	return b
}

// WithRoleProvider sets the role and permission table adapter.
func (b *Builder) WithRoleProvider(p RoleProvider) *Builder {
	b.roles = p
	return b
}

// WithAuditSink sets the audit event receiver. Without it, events go to
// the engine logger as structured lines.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms opts in to the authentication latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires every component, and returns a
// ready engine. A builder can only be consumed once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.accounts == nil {
		return nil, errors.New("account provider required")
	}
	if b.roles == nil {
		return nil, errors.New("role provider required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	codec, err := token.NewCodec(b.redis, token.Config{
		Secret:     cloneBytes(cfg.Token.Secret),
		ExpAccess:  cfg.Token.ExpAccess,
		ExpRefresh: cfg.Token.ExpRefresh,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	locks := limiters.NewLockTracker(b.redis, cfg.Lockout.Window, cfg.Lockout.IPAllowList)

	engine := &Engine{
		config:   cfg,
		redis:    b.redis,
		log:      b.log,
		accounts: b.accounts,
		roles:    b.roles,
		codec:    codec,
		hasher:   hasher,
		locks:    locks,
		attempts: limiters.NewAttemptLimiter(b.redis, locks, cfg.Lockout.Attempts, cfg.Lockout.Window),
		// Bundles outlive the longest token they index.
		sessions: session.NewStore(b.redis, cfg.Token.ExpRefresh),
		registry: permission.NewRegistry(b.redis, b.roles, cfg.Roles.CacheTTL),
		metrics:  NewMetrics(cfg.Metrics),
		now:      time.Now,
	}
	engine.chains = validate.NewChain(cfg.Validation, b.accounts, &bundleOTPSource{sessions: engine.sessions})

	sink := b.sink
	if sink == nil {
		sink = audit.NewZerologSink(b.log)
	}
	engine.audit = audit.NewDispatcher(cfg.Audit, sink)

	b.built = true
	return engine, nil
}
