package logger

// NoOpLogger discards everything; tests use it when output does not matter.
type NoOpLogger struct{}

func NewNop() Logger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}

func (l *NoOpLogger) With(fields ...Field) Logger {
	return l
}

func (l *NoOpLogger) Sync() error {
	return nil
}
