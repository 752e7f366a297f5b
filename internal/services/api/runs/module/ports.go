package module

import "nhanes/internal/services/api/runs/domain"

// Ports is the port set other modules may look up by name
type Ports struct {
	Runs domain.ServicePort
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
