package ir

// Version constants recorded alongside cached output.
const (
	// IRVersion is the IR schema version. Bump it when Describe changes shape.
	IRVersion = "1"

	// EngineVersion is the puresh pipeline version.
	EngineVersion = "0.1.0"
)
