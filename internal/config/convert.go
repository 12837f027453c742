package config

import (
	"github.com/danmuck/envelopectl/internal/protocol/envelope"
)

// EnvelopeLimits maps the configured limits onto the envelope decoder.
func (l LimitsConfig) EnvelopeLimits() envelope.Limits {
	limits := envelope.DefaultLimits()
	if l.MaxHeaderBytes > 0 {
		limits.MaxHeaderBytes = l.MaxHeaderBytes
	}
	if l.MaxItemBytes > 0 {
		limits.MaxItemBytes = l.MaxItemBytes
	}
	return limits
}

// ProjectKeys indexes projects by id. A nil map means any project is
// accepted.
func (c CaptureConfig) ProjectKeys() map[string]string {
	if len(c.Projects) == 0 {
		return nil
	}
	out := make(map[string]string, len(c.Projects))
	for _, p := range c.Projects {
		out[p.ID] = p.Key
	}
	return out
}
