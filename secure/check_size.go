package secure

import "net/http"

type inputSizeCheck struct {
	max int64
}

func newInputSizeCheck(cfg InputSizeConfig) *inputSizeCheck {
	return &inputSizeCheck{max: cfg.MaxInputSize}
}

func (c *inputSizeCheck) Name() string { return CheckNameInputSize }

// Check bounds the body size. The declared Content-Length is preferred; a
// chunked body falls back to the captured length, which the pipeline caps at
// max+1 so an oversized stream is still detected.
func (c *inputSizeCheck) Check(r *http.Request, stream *Stream) Result {
	size := r.ContentLength
	if size < 0 {
		size = int64(len(stream.Body))
	}

	if size > c.max {
		return Result{
			Name:   CheckNameInputSize,
			Status: StatusBlocked,
			Data:   map[string]any{"size": size, "max": c.max},
			Err:    ErrInputTooLarge,
		}
	}
	return Result{OK: true, Name: CheckNameInputSize, Status: StatusPassed}
}
