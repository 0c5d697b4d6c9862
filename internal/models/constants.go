package models

// Representative sentinels.
const (
	// Unassigned marks a tabular transaction whose card is not in the directory.
	Unassigned = "Sin asignar"
	// Unknown marks an LLM group that came back without a representative key.
	Unknown = "Desconocido"
)

// DefaultCurrency is used when configuration does not name one.
const DefaultCurrency = "USD"

// CollapsedDateNote is written to Comments on records whose date looks like
// a duplicate of a single extraction-time value.
const CollapsedDateNote = "date possibly incorrect: verify against statement"

// TodayDateNote is written to Comments when a date equal to the run date was
// discarded because the statement never mentions it.
const TodayDateNote = "date removed: not present in statement"

// File permissions for generated output.
const (
	PermissionFile      = 0644
	PermissionDirectory = 0750
)
