package secure

import (
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/identware/userguard/internal/limiters"
)

// Failure classifications consumed by the HTTP boundary.
var (
	// ErrIPBlocked marks a locked, blacklisted, or otherwise denied source IP.
	ErrIPBlocked = errors.New("request source denied")
	// ErrMethodBlocked marks a disallowed HTTP method.
	ErrMethodBlocked = errors.New("method not allowed")
	// ErrInputTooLarge marks a body over the configured maximum.
	ErrInputTooLarge = errors.New("request body too large")
	// ErrRateLimited marks an exhausted request window.
	ErrRateLimited = errors.New("too many requests")
	// ErrInjectionDetected marks a value matching the injection patterns.
	ErrInjectionDetected = errors.New("Injection detected")
	// ErrInputInvalid marks a value failing the generic per-type validators.
	ErrInputInvalid = errors.New("invalid request input")
	// ErrUnavailable wraps Redis transport failures inside a check.
	ErrUnavailable = errors.New("security backend unavailable")
)

// Check names, stable for Stream lookups and logs.
const (
	CheckNameIP           = "ip"
	CheckNameMethod       = "method"
	CheckNameInputSize    = "inputSizeLimit"
	CheckNameRequestLimit = "requestLimit"
	CheckNameInjection    = "injection"
	CheckNameEscape       = "escape"
	CheckNameInput        = "inputValidation"
)

// RequestCheck is one request-phase gate. Checks may consult the results
// accumulated so far in the stream.
type RequestCheck interface {
	Name() string
	Check(r *http.Request, stream *Stream) Result
}

// ResponseTransform rewrites a buffered response before it is sent.
// Transforms run in registration order.
type ResponseTransform interface {
	Name() string
	Process(r *http.Request, header http.Header, body []byte) (http.Header, []byte, error)
}

// Deps are the external collaborators the built-in checks need.
type Deps struct {
	Redis redis.UniversalClient
	Locks *limiters.LockTracker
}

// Pipeline is the configured chain of checks and transforms. Immutable after
// construction; safe for concurrent use.
type Pipeline struct {
	checks     []RequestCheck
	transforms []ResponseTransform
	maxCapture int64
}

// NewPipeline builds the chain from configuration. Check order is fixed:
// ip, method, inputSizeLimit, requestLimit, injection, escape,
// inputValidation — cheap and coarse before expensive and fine.
func NewPipeline(cfg Config, deps Deps) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{maxCapture: cfg.InputSize.MaxInputSize}
	if p.maxCapture <= 0 {
		p.maxCapture = 1 << 20
	}

	if cfg.IP.IsActive {
		c, err := newIPCheck(cfg.IP, deps.Locks)
		if err != nil {
			return nil, err
		}
		p.checks = append(p.checks, c)
	}
	if cfg.Method.IsActive {
		p.checks = append(p.checks, newMethodCheck(cfg.Method))
	}
	if cfg.InputSize.IsActive {
		p.checks = append(p.checks, newInputSizeCheck(cfg.InputSize))
	}
	if cfg.RequestLimit.IsActive {
		p.checks = append(p.checks, newRequestLimitCheck(cfg.RequestLimit, deps.Redis))
	}
	if cfg.Injection.IsActive {
		p.checks = append(p.checks, newInjectionCheck(cfg.Injection))
	}
	if cfg.EscapeCheck.IsActive {
		p.checks = append(p.checks, newEscapeCheck(cfg.EscapeCheck))
	}
	if cfg.InputCheck.IsActive {
		p.checks = append(p.checks, newInputCheck(cfg.InputCheck))
	}

	if cfg.Headers.IsActive {
		p.transforms = append(p.transforms, headersTransform{})
	}
	if cfg.EscapeResponse.IsActive {
		p.transforms = append(p.transforms, escapeTransform{})
	}
	if cfg.Compress.IsActive {
		p.transforms = append(p.transforms, compressTransform{})
	}

	return p, nil
}

// CheckRequest runs the request-phase chain. The returned stream always
// carries the results accumulated up to and including the failing check; a
// non-nil error is the first failure's classification.
func (p *Pipeline) CheckRequest(r *http.Request) (*Stream, error) {
	stream := &Stream{ClientIP: ClientIP(r)}

	body, err := capture(r, p.maxCapture)
	if err != nil {
		return stream, ErrInputInvalid
	}
	stream.Body = body

	for _, check := range p.checks {
		res := check.Check(r, stream)
		stream.Add(res)
		if !res.OK {
			if res.Err == nil {
				res.Err = ErrIPBlocked
			}
			return stream, res.Err
		}
	}

	return stream, nil
}

// ProcessResponse runs the response-phase transforms over a buffered
// response, returning the rewritten header set and body.
func (p *Pipeline) ProcessResponse(r *http.Request, header http.Header, body []byte) (http.Header, []byte, error) {
	var err error
	for _, t := range p.transforms {
		header, body, err = t.Process(r, header, body)
		if err != nil {
			return header, body, err
		}
	}
	return header, body, nil
}

// ActiveChecks returns the names of the instantiated checks, in order.
func (p *Pipeline) ActiveChecks() []string {
	names := make([]string, len(p.checks))
	for i, c := range p.checks {
		names[i] = c.Name()
	}
	return names
}
