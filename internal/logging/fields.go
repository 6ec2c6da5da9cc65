package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. build_complete).
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldBuildID identifies one index build.
	FieldBuildID = "build_id"
	// FieldPath is the collection-relative path of the file being processed.
	FieldPath = "path"
	// FieldRoot is the collection root of a build.
	FieldRoot = "root"
	// FieldPhase names a build phase for progress reporting.
	FieldPhase = "phase"
	// FieldProgressPercent reports completion of the current phase.
	FieldProgressPercent = "progress_percent"
	// FieldSource names a snapshot source.
	FieldSource = "source"
)
