// File: api/control.go
// Package api defines the runtime control contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Control exposes runtime overrides and pool telemetry. Overrides set
// through SetConfig apply from the next batch on.
type Control interface {
	GetConfig() map[string]any
	SetConfig(cfg map[string]any) error
	Stats() map[string]any
	OnReload(fn func())
	RegisterDebugProbe(name string, fn func() any)
}

// Runtime override keys understood by the client.
const (
	ConfigMaxConcurrency = "pool.max_concurrency"
	ConfigDefaultWait    = "pool.default_wait"
	ConfigDefaultTimeout = "transfer.default_timeout"
	ConfigStrictTLS      = "transfer.strict_tls"
	ConfigLogLevel       = "log.level"
)
