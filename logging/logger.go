package logging

import "go.uber.org/zap"

// New returns a child of the global logger named after the component using it.
// config.New must have replaced the globals first for output to show up.
func New(name string) *zap.SugaredLogger {
	return zap.L().Named(name).Sugar()
}
