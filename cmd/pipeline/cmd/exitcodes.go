package cmd

// Process exit codes (spec §6 "Exit codes": "0 success; nonzero for
// validation failure, schema drift, partial-artifact detection, or
// uncaught error").
const (
	exitOK          = 0
	exitRunFailure  = 1 // validation failure, schema drift, golden mismatch
	exitConfigError = 2 // configuration could not be loaded or validated
)
