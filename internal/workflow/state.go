package workflow

// State is the position of a Run in the metadata workflow.
type State int

const (
	StateIdle State = iota
	StateToolsProbed
	StateMetadataExtracted
	StateParamsSupplied
	StateEncoded
	StateInjected
	StateFallback
	StateCleanedUp
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateToolsProbed:
		return "tools_probed"
	case StateMetadataExtracted:
		return "metadata_extracted"
	case StateParamsSupplied:
		return "params_supplied"
	case StateEncoded:
		return "encoded"
	case StateInjected:
		return "injected"
	case StateFallback:
		return "fallback"
	case StateCleanedUp:
		return "cleaned_up"
	default:
		return "unknown"
	}
}

// Outcome describes how the post-encode phase produced the final file.
type Outcome int

const (
	// OutcomePassthrough means no post-processing was needed.
	OutcomePassthrough Outcome = iota
	// OutcomeInjected means the RPU was injected.
	OutcomeInjected
	// OutcomeFallback means injection failed and the plain encode was kept.
	OutcomeFallback
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInjected:
		return "injected"
	case OutcomeFallback:
		return "fallback"
	default:
		return "passthrough"
	}
}

// MarshalText renders the outcome for JSON reports.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}
