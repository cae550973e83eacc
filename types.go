package goshape

// NumberMode dictates how decoded numbers are represented. Both modes are
// numbers to the validator.
type NumberMode int

const (
	NumberFloat64    NumberMode = iota // float64 (with potential precision loss).
	NumberJSONNumber                   // Preserve the number text as json.Number.
)

// Severity expresses the severity level for issues.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Error
)

// Strictness configures enforcement for duplicate keys.
type Strictness struct {
	OnDuplicateKey Severity // Ignore, Warn (reported to IssueSink) or Error.
}

// DecodeOpt bundles decoding options.
type DecodeOpt struct {
	Strictness Strictness
	MaxDepth   int   // Maximum container nesting; 0 disables the limit.
	MaxBytes   int64 // Maximum consumed input bytes; 0 disables the limit.
	NumberMode NumberMode
	// IssueSink receives non-fatal issues such as duplicate keys under Warn.
	IssueSink func(Issue)
}

// DefaultMaxDepth is the nesting limit applied by DefaultDecodeOpt.
const DefaultMaxDepth = 512

// DefaultDecodeOpt returns a recommended default for untrusted input:
// duplicate keys are errors and nesting is capped at DefaultMaxDepth.
func DefaultDecodeOpt() DecodeOpt {
	return DecodeOpt{
		Strictness: Strictness{OnDuplicateKey: Error},
		MaxDepth:   DefaultMaxDepth,
	}
}
