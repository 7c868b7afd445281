package domain

import "errors"

// Severity grades a diagnostic.
type Severity string

const (
	// SeverityError marks a failed build.
	SeverityError Severity = "error"
	// SeverityWarning marks a degraded but completed build.
	SeverityWarning Severity = "warning"
)

// Diagnostic is what a failed background build reports to the host.
type Diagnostic struct {
	// BuildID identifies the build attempt.
	BuildID string
	// Context names the calling context, usually the issuing document's path.
	Context string
	// Severity grades the report.
	Severity Severity
	// Message is a short human-readable summary.
	Message string
	// Destination is the artifact the build was producing.
	Destination string
	// Err carries the failure detail.
	Err error
}

// NewDiagnostic describes the failure err of the build of destination
// requested from context. A failure that only lost the cache record is a
// warning; anything else is an error.
func NewDiagnostic(context, buildID, destination string, err error) Diagnostic {
	d := Diagnostic{
		BuildID:     buildID,
		Context:     context,
		Severity:    SeverityError,
		Message:     "concat build failed",
		Destination: destination,
		Err:         err,
	}

	var buildErr *BuildError
	if errors.As(err, &buildErr) {
		if d.BuildID == "" {
			d.BuildID = buildErr.BuildID
		}
		return d
	}

	var persistErr *PersistenceError
	if errors.As(err, &persistErr) {
		d.Severity = SeverityWarning
		d.Message = "build cache record not persisted"
	}
	return d
}
