package ensure

import (
	"github.com/go-logr/logr"
	"github.com/hashicorp/go-hclog"
)

// NewHCLogLogger wraps an hclog.Logger in the logr.Logger interface the
// library takes. logr V(0) maps to hclog Info, V(1) and above to Debug.
func NewHCLogLogger(logger hclog.Logger) logr.Logger {
	return logr.New(&hclogSink{logger: logger})
}

type hclogSink struct {
	logger hclog.Logger
}

func (s *hclogSink) Init(info logr.RuntimeInfo) {}

func (s *hclogSink) Enabled(level int) bool {
	if level > 0 {
		return s.logger.IsDebug()
	}
	return s.logger.IsInfo()
}

func (s *hclogSink) Info(level int, msg string, keysAndValues ...interface{}) {
	if level > 0 {
		s.logger.Debug(msg, keysAndValues...)
		return
	}
	s.logger.Info(msg, keysAndValues...)
}

func (s *hclogSink) Error(err error, msg string, keysAndValues ...interface{}) {
	if err != nil {
		keysAndValues = append(keysAndValues, "error", err)
	}
	s.logger.Error(msg, keysAndValues...)
}

func (s *hclogSink) WithValues(keysAndValues ...interface{}) logr.LogSink {
	return &hclogSink{logger: s.logger.With(keysAndValues...)}
}

func (s *hclogSink) WithName(name string) logr.LogSink {
	return &hclogSink{logger: s.logger.Named(name)}
}
