package meta

const (
	// CLIName is the name of the binary and the prefix used for config paths
	// and environment variables.
	CLIName = "ctable"
)
