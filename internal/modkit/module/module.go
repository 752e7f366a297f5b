// Package module holds the module contract and the process port registry
package module

import (
	phttp "nhanes/internal/platform/net/http"
)

// Module is one service area of the API, such as meta probes or published runs
type Module interface {
	// Name keys the module in the port registry
	Name() string
	// MountRoutes adds the module's handlers under the /v1 group
	MountRoutes(r phttp.Router)
	// Ports returns the service surface other modules and commands call
	Ports() any
}
