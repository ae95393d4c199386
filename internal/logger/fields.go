package logger

// Standard field names for structured logging. Use these constants instead
// of raw strings so log queries stay stable.
const (
	FieldComponent = "component"
	FieldFile      = "file"
	FieldOutput    = "output"
	FieldDialect   = "dialect"
	FieldStage     = "stage"
	FieldLine      = "line"
	FieldColumn    = "column"
	FieldName      = "name"
	FieldScript    = "script"
	FieldRunID     = "run_id"
	FieldOp        = "op"

	FieldCount      = "count"
	FieldDurationMS = "duration_ms"

	FieldError = "error"
)
