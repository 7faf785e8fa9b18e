package cli

// Default values for CLI flags and output formatting.
const (
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
)
