package model

// Step is one hop of a discovered call chain.
// Shared between the dataflow analyzer and the report generator.
type Step struct {
	Signature string
	CallSite  string
}

// Finding is the report-facing record of one flow from an entry point to a
// sink, with its score already classified.
type Finding struct {
	EntryPoint    string
	ComponentKind string
	Deeplink      bool
	SinkMethod    string
	Category      string
	Severity      string
	Confidence    float64
	Level         string
	PathCount     int
	MinPathLength int
	Chains        [][]Step
}
