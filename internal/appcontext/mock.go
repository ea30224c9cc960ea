package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/hubmapconsortium/channelmap"
)

// Mock provides a mock implementation of Interface for testing. Each method
// can be customized by setting the corresponding function field. If a
// function field is nil, the method returns a default value.
type Mock struct {
	EngineFunc       func(...channelmap.Option) (*channelmap.Engine, error)
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	VersionFunc      func() string
	CommitFunc       func() string
	DateFunc         func() string
	BuiltByFunc      func() string
}

// Ensure Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)

// Engine returns an engine using the mock function, or a default one.
func (m *Mock) Engine(opts ...channelmap.Option) (*channelmap.Engine, error) {
	if m.EngineFunc != nil {
		return m.EngineFunc(opts...)
	}
	return channelmap.New(opts...)
}

// Logger returns the mock logger or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	nop := zerolog.Nop()
	return &nop
}

// OutputFormat returns the mock output format or the empty string.
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return ""
}

// Version returns the mock version or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns the mock commit or "unknown".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "unknown"
}

// Date returns the mock build date or "unknown".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// BuiltBy returns the mock builder or "unknown".
func (m *Mock) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "unknown"
}
