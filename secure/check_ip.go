package secure

import (
	"net"
	"net/http"
	"strings"

	"github.com/identware/userguard/internal/limiters"
)

// ipMatcher matches an IP against a mixed list of plain addresses and CIDR
// blocks, parsed once at construction.
type ipMatcher struct {
	exact map[string]struct{}
	nets  []*net.IPNet
}

func newIPMatcher(entries []string) (*ipMatcher, error) {
	m := &ipMatcher{exact: make(map[string]struct{})}
	for _, entry := range entries {
		if strings.Contains(entry, "/") {
			_, block, err := net.ParseCIDR(entry)
			if err != nil {
				return nil, err
			}
			m.nets = append(m.nets, block)
			continue
		}
		m.exact[entry] = struct{}{}
	}
	return m, nil
}

func (m *ipMatcher) match(ip string) bool {
	if _, ok := m.exact[ip]; ok {
		return true
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, block := range m.nets {
		if block.Contains(parsed) {
			return true
		}
	}
	return false
}

type ipCheck struct {
	whitelist *ipMatcher
	blacklist *ipMatcher
	locks     *limiters.LockTracker
}

func newIPCheck(cfg IPConfig, locks *limiters.LockTracker) (*ipCheck, error) {
	wl, err := newIPMatcher(cfg.Whitelist)
	if err != nil {
		return nil, err
	}
	bl, err := newIPMatcher(cfg.Blacklist)
	if err != nil {
		return nil, err
	}
	return &ipCheck{whitelist: wl, blacklist: bl, locks: locks}, nil
}

func (c *ipCheck) Name() string { return CheckNameIP }

// Check rejects locked or blacklisted sources and marks whitelisted ones so
// downstream checks honoring ignore_whitelist can relax.
func (c *ipCheck) Check(r *http.Request, stream *Stream) Result {
	ip := stream.ClientIP

	if c.whitelist.match(ip) {
		return Result{
			OK:     true,
			Name:   CheckNameIP,
			Status: StatusWhitelisted,
			Data:   map[string]any{"in_whitelist": true},
		}
	}

	if c.blacklist.match(ip) {
		return Result{Name: CheckNameIP, Status: StatusBlocked, Err: ErrIPBlocked}
	}

	if c.locks != nil {
		locked, err := c.locks.IsIPLocked(r.Context(), ip)
		if err != nil {
			// Fail closed: an unreachable lock store must not open the gate.
			return Result{Name: CheckNameIP, Status: StatusBlocked, Err: ErrUnavailable}
		}
		if locked {
			return Result{Name: CheckNameIP, Status: StatusBlocked, Err: ErrIPBlocked}
		}
	}

	return Result{OK: true, Name: CheckNameIP, Status: StatusPassed}
}
