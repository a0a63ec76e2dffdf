package cli

var (
	Version   = ""
	CommitSHA = ""
)

// Globals defines global flags available to all commands.
type Globals struct {
	Telemetry bool `help:"Show timing telemetry for operations."`
}

type Commands struct {
	Globals

	Transform TransformCmd `cmd:"" help:"Run the transform pipeline over a ledger and print or write back the result."`
	Check     CheckCmd     `cmd:"" help:"Parse a ledger, run the pipeline, and report diagnostics."`
	Plugins   PluginsCmd   `cmd:"" help:"List the registered transforms."`
}
