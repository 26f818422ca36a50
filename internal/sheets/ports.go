package sheets

import (
	"context"

	"feeledger/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordMirror copies stored payment records to an external sheet.
	// Mirroring the same record twice must not produce a second row.
	RecordMirror interface {
		MirrorRecord(ctx context.Context, r core.PaymentRecord) (rowRef string, err error)
	}
)
