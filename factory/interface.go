package factory

import "context"

// Server defines the operation of an entity able to serve requests
type Server interface {
	Start()
	Address() string
	Close() error
}

// Scheduler defines the operations of the periodic task driver
type Scheduler interface {
	Start()
	Close()
	TriggerExport(ctx context.Context) (string, error)
}
