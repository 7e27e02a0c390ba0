package userguard

import "context"

type clientIPContextKey struct{}
type sectionContextKey struct{}

// WithClientIP attaches the caller's source IP to ctx. The engine uses it for
// per-IP lockout tracking during Login; requests without an IP skip the IP
// half of the limiter.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithSection attaches the API section ("api" or "admin") to ctx. Role
// filtering defaults to SectionAPI when absent.
func WithSection(ctx context.Context, section Section) context.Context {
	return context.WithValue(ctx, sectionContextKey{}, section)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func sectionFromContext(ctx context.Context) Section {
	if ctx == nil {
		return SectionAPI
	}
	s, ok := ctx.Value(sectionContextKey{}).(Section)
	if !ok || s == "" {
		return SectionAPI
	}
	return s
}
