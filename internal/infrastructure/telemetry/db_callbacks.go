package telemetry

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type contextKey string

// registerFunc is the Register method of a positioned gorm callback.
type registerFunc func(name string, fn func(*gorm.DB)) error

// registerAround installs before and after callbacks on every gorm chain.
// after receives the chain name ("create", "query", ...).
func registerAround(db *gorm.DB, prefix string, before func(*gorm.DB), after func(*gorm.DB, string)) error {
	cb := db.Callback()
	chains := []struct {
		name          string
		before, after registerFunc
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, c := range chains {
		if err := c.before(prefix+":before_"+c.name, before); err != nil {
			return err
		}
		name := c.name
		if err := c.after(prefix+":after_"+name, func(db *gorm.DB) {
			after(db, name)
		}); err != nil {
			return err
		}
	}
	return nil
}

// stampStart returns a before callback that stores the statement start time under key
func stampStart(key contextKey) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, key, time.Now())
	}
}

// elapsedSince returns the time since the start stored under key, or false
func elapsedSince(ctx context.Context, key contextKey) (time.Duration, bool) {
	if ctx == nil {
		return 0, false
	}
	start, ok := ctx.Value(key).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}
