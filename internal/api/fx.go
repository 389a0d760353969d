// Package api serves the cached sources and posts over HTTP. It only reads
// the cache; it never triggers a fetch.
package api

import (
	"go.uber.org/fx"
)

var Module = fx.Module("api",
	fx.Provide(
		NewServer,
	),
)
