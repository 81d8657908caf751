package logger

import (
	"log"

	"github.com/rollbar/rollbar-go"
)

type RollbarConfig struct {
	Token       string
	Environment string
	ServerHost  string
	CodeVersion string
}

// Rollbar reports to Rollbar and mirrors every entry to a Std logger.
type Rollbar struct {
	std *Std
}

var _ Logger = (*Rollbar)(nil)

func NewRollbar(std *log.Logger, conf RollbarConfig) *Rollbar {
	rollbar.SetToken(conf.Token)
	rollbar.SetEnvironment(conf.Environment)
	rollbar.SetServerHost(conf.ServerHost)
	rollbar.SetCodeVersion(conf.CodeVersion)
	rollbar.SetEnabled(conf.Token != "")
	return &Rollbar{std: NewStd(std)}
}

// expected args: msg, error (optional), map of extras
func (l *Rollbar) prepare(msg string, kv []any) []interface{} {
	extras, err := fields(kv)
	args := make([]interface{}, 0, 3)
	if err != nil {
		args = append(args, err)
	}
	args = append(args, msg, extras)
	return args
}

func (l *Rollbar) Info(msg string, kv ...any) {
	rollbar.Info(l.prepare(msg, kv)...)
	l.std.Info(msg, kv...)
}

func (l *Rollbar) Warn(msg string, kv ...any) {
	rollbar.Warning(l.prepare(msg, kv)...)
	l.std.Warn(msg, kv...)
}

func (l *Rollbar) Error(msg string, kv ...any) {
	rollbar.Error(l.prepare(msg, kv)...)
	l.std.Error(msg, kv...)
}

// Flush waits for queued reports to be sent.
func (l *Rollbar) Flush() { rollbar.Wait() }
