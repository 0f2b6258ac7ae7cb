package utils

import (
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/rs/zerolog"
	"github.com/vgarvardt/gue/v5/adapter"
)

// GueLogAdapter writes gue logs to goapp.Log tagged with the component name.
// Gue info messages are noisy polling logs, so they go to debug level
type GueLogAdapter struct {
	component string
	fields    []adapter.Field
}

// NewGueLoggerAdapter creates adapter
func NewGueLoggerAdapter(component string) *GueLogAdapter {
	return &GueLogAdapter{component: component}
}

// Debug implements adapter.Logger
func (l *GueLogAdapter) Debug(msg string, fields ...adapter.Field) {
	l.event(goapp.Log.Trace(), fields).Msg(msg)
}

// Info implements adapter.Logger
func (l *GueLogAdapter) Info(msg string, fields ...adapter.Field) {
	l.event(goapp.Log.Debug(), fields).Msg(msg)
}

// Error implements adapter.Logger
func (l *GueLogAdapter) Error(msg string, fields ...adapter.Field) {
	l.event(goapp.Log.Error(), fields).Msg(msg)
}

// With implements adapter.Logger
func (l *GueLogAdapter) With(fields ...adapter.Field) adapter.Logger {
	res := &GueLogAdapter{component: l.component, fields: make([]adapter.Field, 0, len(l.fields)+len(fields))}
	res.fields = append(res.fields, l.fields...)
	res.fields = append(res.fields, fields...)
	return res
}

func (l *GueLogAdapter) event(le *zerolog.Event, fields []adapter.Field) *zerolog.Event {
	le = le.Str("component", l.component)
	for _, fs := range [][]adapter.Field{l.fields, fields} {
		for _, f := range fs {
			if err, ok := f.Value.(error); ok {
				le = le.AnErr(f.Key, err)
				continue
			}
			le = le.Interface(f.Key, f.Value)
		}
	}
	return le
}
