package config

import (
	"github.com/spf13/pflag"
)

// Flags returns a flag set whose names match the config keys, so Load can
// bind them directly. Defaults mirror DefaultConfig.
func Flags(name string) *pflag.FlagSet {
	d := DefaultConfig()
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	fs.StringP("config", "c", "", "config file (yaml, json or toml)")
	fs.StringP("input", "i", d.Input, "CSV file to replay, - for stdin")
	fs.StringP("output", "o", d.Output, "snapshot destination, - for stdout")

	fs.String("log.level", d.Log.Level, "log level: debug, info, warn, error")
	fs.Bool("log.production", d.Log.Production, "JSON logs instead of console output")

	fs.String("history.backend", d.History.Backend, "history backend: memory, bolt, sqlite, mongo")
	fs.String("history.dsn", d.History.DSN, "history file path or mongo URI")
	fs.String("history.mongo_database", d.History.MongoDatabase, "mongo database name")

	fs.String("engine.lock_policy", d.Engine.LockPolicy, "events for locked accounts: reject or allow")
	fs.Int("engine.partitions", d.Engine.Partitions, "engines run side by side, routed by client")
	fs.Duration("engine.hook_timeout", d.Engine.HookTimeout, "per-call plugin hook timeout")
	fs.Bool("engine.strict_input", d.Engine.StrictInput, "fail on the first malformed row")

	fs.Bool("metrics.enabled", d.Metrics.Enabled, "collect Prometheus metrics")
	fs.String("metrics.file", d.Metrics.File, "write metrics in text format to this file")

	fs.Bool("audit.enabled", d.Audit.Enabled, "write an audit trail to the log")

	return fs
}
