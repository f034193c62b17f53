package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dhawton/log4g"
)

var cronLog = log4g.Category("cron")

// cronLogger sends robfig/cron's own logging to log4g.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cronLog.Debug(msg + formatKeysAndValues(keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	cronLog.Error(msg + ": " + err.Error() + formatKeysAndValues(keysAndValues))
}

func formatKeysAndValues(kv []interface{}) string {
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	return b.String()
}

// job runs poll with a deadline, so a hung run ends before the next one is
// due. Errors are already logged where they happen.
func job(parent context.Context, poll func(context.Context) error, deadline time.Duration) func() {
	return func() {
		ctx, cancel := context.WithTimeout(parent, deadline)
		defer cancel()
		_ = poll(ctx)
	}
}
