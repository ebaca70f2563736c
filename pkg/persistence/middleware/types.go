// Package middleware wraps handoff queues to protect the tickets they persist.
package middleware

import "github.com/aretw0/switchboard/pkg/ports"

// Middleware allows wrapping a HandoffQueue to add behavior.
type Middleware func(ports.HandoffQueue) ports.HandoffQueue

// Chain applies mws to q. The first middleware sees tickets first.
func Chain(q ports.HandoffQueue, mws ...Middleware) ports.HandoffQueue {
	for i := len(mws) - 1; i >= 0; i-- {
		q = mws[i](q)
	}
	return q
}
