package operations

// Step identifiers, in execution order
const (
	StepIDValidate = "validate-inputs"
	StepIDIngest   = "ingest"
	StepIDJoin     = "join"
	StepIDAnalyse  = "analyse"
	StepIDEmit     = "emit"
)

// Step names
const (
	StepNameValidate = "Input Validation"
	StepNameIngest   = "File Ingestion"
	StepNameJoin     = "Table Join"
	StepNameAnalyse  = "Analysis"
	StepNameEmit     = "Result Emission"
)
