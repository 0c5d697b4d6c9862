package logging

// Field names shared by every component so log output stays greppable.
const (
	FieldFile           = "file_path"
	FieldSourceKind     = "source_kind"
	FieldStatementID    = "statement_id"
	FieldTransactionID  = "transaction_id"
	FieldRepresentative = "representative"
	FieldAccount        = "account"
	FieldBlock          = "block"
	FieldRow            = "row"
	FieldStrategy       = "strategy"
	FieldAttempt        = "attempt"
	FieldPart           = "part"
	FieldChunk          = "chunk"
	FieldReason         = "reason"
	FieldOperation      = "operation"
	FieldStatus         = "status"
	FieldCount          = "count"
	FieldDuration       = "duration_ms"
	FieldProvider       = "provider"
	FieldOutputFile     = "output_file"
)
