package cmd

// Centralized command and flag name strings for all CLI commands. Use these
// constants in Cobra Use fields and user-facing messages (error text, help
// text, remediation suggestions) so that names are defined in exactly one
// place.

const (
	// Root command
	handoffCmdStr = "handoff"

	// Top-level commands
	compressCmdStr   = "compress"
	decompressCmdStr = "decompress"
	watchCmdStr      = "watch"
	ledgerCmdStr     = "ledger"
	configCmdStr     = "config"
	doctorCmdStr     = "doctor"
	mcpCmdStr        = "mcp"
	versionCmdStr    = "version"

	// Subcommands
	lsCmdStr   = "ls"
	initCmdStr = "init"
	showCmdStr = "show"
)

const (
	inputFlagName       = "input"
	outputFlagName      = "output"
	compressAllFlagName = "compress-all"
	silentFlagName      = "silent"
	aggressiveFlagName  = "aggressive"
	forceFlagName       = "force"
	statsFlagName       = "stats"
	sourceDirFlagName   = "source-dir"
	compactDirFlagName  = "compact-dir"
	humanDirFlagName    = "human-dir"
	limitFlagName       = "limit"
)
