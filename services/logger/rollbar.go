package logsvc

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/user"
)

// RollbarLogger prints every entry and reports it to Rollbar when enabled.
type RollbarLogger struct {
	std    *log.Logger
	client *rollbar.Client
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	client := rollbar.NewAsync(conf.RollbarToken, conf.Env, conf.Build, conf.Server.Host, "")
	client.SetStackTracer(errors.StackTracer)
	client.SetCustom(map[string]interface{}{"app": conf.AppName, "database": conf.Database.Engine})
	return &RollbarLogger{std: std, client: client}
}

// Enable turns reporting to Rollbar on or off; entries are always printed.
func (l *RollbarLogger) Enable(enabled bool) {
	l.client.SetEnabled(enabled)
}

// entry is a log call with its arguments sorted by kind: the first error and the first
// identified user are reported as such, maps are merged into the extras and anything
// else is kept under "args".
type entry struct {
	level  string
	msg    string
	err    error
	usr    *user.User
	extras map[string]interface{}
}

func newEntry(level, msg string, args []interface{}) entry {
	e := entry{level: level, msg: msg, extras: make(map[string]interface{})}
	var rest []interface{}
	for _, arg := range args {
		switch v := arg.(type) {
		case error:
			if e.err == nil {
				e.err = v
				continue
			}
			rest = append(rest, v.Error())
		case user.User:
			if e.usr == nil && v.ID != "" {
				usr := v
				e.usr = &usr
			}
		case map[string]interface{}:
			for k, val := range v {
				e.extras[k] = val
			}
		default:
			rest = append(rest, v)
		}
	}
	if len(rest) > 0 {
		e.extras["args"] = rest
	}
	return e
}

func (e entry) context() context.Context {
	ctx := context.Background()
	if e.usr != nil {
		ctx = rollbar.NewPersonContext(ctx, &rollbar.Person{Id: e.usr.ID, Username: e.usr.Name, Email: e.usr.Email})
	}
	return ctx
}

func (e entry) String() string {
	s := fmt.Sprintf("[%s] %s", e.level, e.msg)
	if e.usr != nil {
		s += fmt.Sprintf(" user=%s (%s)", e.usr.ID, e.usr.Name)
	}
	keys := make([]string, 0, len(e.extras))
	for k := range e.extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s += fmt.Sprintf(" %s=%v", k, e.extras[k])
	}
	if e.err != nil {
		s += fmt.Sprintf("\n%+v", e.err)
	}
	return s
}

func (l *RollbarLogger) log(level, msg string, args []interface{}) {
	e := newEntry(level, msg, args)
	l.std.Println(e)
	if e.err != nil {
		e.extras["message"] = msg
		l.client.ErrorWithStackSkipWithExtrasAndContext(e.context(), level, e.err, 3, e.extras)
		return
	}
	l.client.MessageWithExtrasAndContext(e.context(), level, msg, e.extras)
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.log(rollbar.DEBUG, msg, args) }

func (l *RollbarLogger) Info(msg string, args ...interface{}) { l.log(rollbar.INFO, msg, args) }

func (l *RollbarLogger) Warn(msg string, args ...interface{}) { l.log(rollbar.WARN, msg, args) }

func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.ERR, msg, args) }

// Fatal reports the entry, waits for pending reports and exits.
func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	_ = l.client.Close()
	l.std.Fatal(msg)
}
