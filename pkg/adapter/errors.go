package adapter

import "fmt"

// reasoner is implemented by transport errors that carry a classification.
type reasoner interface {
	Reason() string
}

// reject logs a failed request and hands the error back unchanged so the
// caller's own failure handling observes the original value.
func (a *Adapter) reject(operation string, req Request, err error) error {
	reason := fmt.Sprintf("%T", err)
	if r, ok := err.(reasoner); ok {
		reason = r.Reason()
	}

	rejectionsTotal.WithLabelValues(operation).Inc()

	a.logger.Error().
		Err(err).
		Str("operation", operation).
		Str("method", req.Method).
		Str("url", req.URL).
		Str("reason", reason).
		Msg("Tastypie request rejected")

	return err
}
