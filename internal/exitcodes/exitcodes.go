package exitcodes

// Exit codes for the dirsweep daemon
// These codes form the operational contract with cron jobs and operators
const (
	Success       = 0 // Successful execution or no-op
	UnsafePath    = 1 // Target path rejected by the safety validator
	InvalidConfig = 2 // Configuration file invalid or missing
	RuntimeError  = 4 // Runtime error during execution
)
