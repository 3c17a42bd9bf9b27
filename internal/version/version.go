package version

// Overridden at build time via -ldflags "-X github.com/ggonzalez94/gud-quote/internal/version.Commit=...".
var (
	CLIName    = "gudquote"
	CLIVersion = "0.1.0"
	Commit     = "unknown"
	BuildDate  = "unknown"
)
