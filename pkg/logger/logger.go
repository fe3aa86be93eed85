package logger

// Logger - this interface is used to abstract the logging library used by
// packages that only need plain info/error logging, such as metrics export.
type Logger interface {
	Info(msg string)
	Error(err error)
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
