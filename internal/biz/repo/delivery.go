package repo

import "context"

// DeliverySink delivers a finished report (email, chat, ...)
type DeliverySink interface {
	// Name identifies the sink in logs and run history
	Name() string

	// Validate reports missing addresses or credentials as *domain.IncompleteConfigError
	// before any delivery is attempted
	Validate() error

	// Deliver sends the report. Protocol failures are wrapped in *domain.TransportError.
	Deliver(ctx context.Context, subject, body string) error
}
