// Package runtime holds the process-global dependency injection container.
package runtime

import (
	"go.uber.org/dig"
)

// container is the application-wide dig container; components register and
// resolve through it.
var container *dig.Container

func init() {
	container = dig.New()
}

// GetContainer returns the global dependency injection container.
func GetContainer() *dig.Container {
	return container
}
