package ir

// Version constants for IR schema and engine.
const (
	// IRVersion is the class spec schema version.
	IRVersion = "1"

	// EngineVersion is the classkit engine version.
	EngineVersion = "0.1.0"
)
