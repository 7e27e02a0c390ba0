package secure

import (
	"net/http"
	"strings"
)

type methodCheck struct {
	allow map[string]struct{}
}

func newMethodCheck(cfg MethodConfig) *methodCheck {
	allow := make(map[string]struct{}, len(cfg.AllowMethod))
	for _, m := range cfg.AllowMethod {
		allow[strings.ToUpper(m)] = struct{}{}
	}
	return &methodCheck{allow: allow}
}

func (c *methodCheck) Name() string { return CheckNameMethod }

func (c *methodCheck) Check(r *http.Request, _ *Stream) Result {
	if _, ok := c.allow[r.Method]; !ok {
		return Result{
			Name:   CheckNameMethod,
			Status: StatusBlocked,
			Data:   map[string]any{"method": r.Method},
			Err:    ErrMethodBlocked,
		}
	}
	return Result{OK: true, Name: CheckNameMethod, Status: StatusPassed}
}
