package system

import "github.com/stellardominion/server/internal/core/event"

// System is a processing component attached to the bus. Systems hold only
// transient bookkeeping; canonical entity data lives in the managers.
type System interface {
	event.Handler
	// Component fixes the system's slot in the delivery order.
	Component() event.ComponentID
}
