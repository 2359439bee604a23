package logger

// Standard field names for consistent structured logging across facet.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Components
	FieldComponent = "component"
	FieldOperation = "operation"

	// Domain
	FieldPartition = "partition"
	FieldAttribute = "attribute"
	FieldEntity    = "entity"
	FieldIdent     = "ident"

	// Counts and sizes
	FieldCount       = "count"
	FieldBatchSize   = "batch_size"
	FieldOpCount     = "op_count"
	FieldTempIDCount = "tempid_count"

	// Errors
	FieldError = "error"

	// Files and paths
	FieldFile = "file"
	FieldPath = "path"
)
