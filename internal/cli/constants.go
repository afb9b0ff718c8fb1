package cli

// Default values for CLI flags and formatted output.
const (
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
	// progressStep is the percentage between verbose progress lines.
	progressStep = 10
)
