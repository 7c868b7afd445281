package ports

import "go.trai.ch/stitch/internal/core/domain"

// Diagnostics is the host-provided sink for background build failures.
// Report must never panic or block for long; callers do not inspect failures.
//
//go:generate mockgen -source=diagnostics.go -destination=mocks/mock_diagnostics.go -package=mocks
type Diagnostics interface {
	Report(d domain.Diagnostic)
}
