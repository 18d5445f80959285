package domain

// StagedFile identifies a diagram image that has been pushed to the remote
// stage. Name is the filename inside the stage; Ref is the full stage path
// ("@<stage>/<name>") used by completion queries.
type StagedFile struct {
	Name string
	Ref  string
}

// Service-side limits for diagram uploads. Violations are rejected locally
// instead of surfacing as remote errors.
const (
	// MaxDiagramBytes is the documented Cortex image limit (3.75 MB).
	MaxDiagramBytes = 3932160

	// MaxDiagramDimension is the documented per-axis resolution limit.
	MaxDiagramDimension = 8000
)
