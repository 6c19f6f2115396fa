package registry

import (
	"fmt"
	"strings"
)

// ConfigNotFoundError is returned when a config, or a base config it
// references, is not part of the registry.
type ConfigNotFoundError struct {
	ID    ConfigID
	Chain []ConfigID
}

func (e *ConfigNotFoundError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("widget config %q not found", e.ID)
	}
	return fmt.Sprintf("widget config %q not found (referenced via %s)", e.ID, joinChain(e.Chain))
}

// CyclicConfigError is returned when base config references form a cycle.
type CyclicConfigError struct {
	Chain []ConfigID
}

func (e *CyclicConfigError) Error() string {
	return fmt.Sprintf("widget config base cycle detected: %s", joinChain(e.Chain))
}

func joinChain(chain []ConfigID) string {
	parts := make([]string, len(chain))
	for i, id := range chain {
		parts[i] = string(id)
	}
	return strings.Join(parts, " -> ")
}
