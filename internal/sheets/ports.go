package sheets

import "context"

// Ports for outbound adapters.
type (
	// TableWriter replaces the whole content of a sheet with rows. The
	// first row is the header.
	TableWriter interface {
		ReplaceTable(ctx context.Context, rows [][]string) error
	}
)
