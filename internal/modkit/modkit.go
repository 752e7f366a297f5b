// Package modkit provides module wiring and core deps
package modkit

import (
	"nhanes/internal/modkit/module"
)

// Module is the surface the API composes: routes, ports and a name
type Module = module.Module
