// Package commands defines the celerix CLI and wires the profile store for subcommands.
//
// Commands
//
//   - get       Print a profile document
//   - put       Store a JSON object under a profile ID
//   - new       Store a JSON object under a generated profile ID
//   - del       Delete a profile and its backup
//   - list      Print all profile IDs
//   - dump      Print every loadable profile
//   - move      Rename a profile
//   - restore   Copy a profile's backup over its primary file
//   - ping      Check that the daemon answers
//   - migrate   Copy every profile into another directory, codec or obfuscation mode
//
// # Implementation
//
// With --addr (or CELERIX_STORE_ADDR) the root command connects to a running
// daemon. Otherwise it opens the store in --data-dir directly, using the same
// service the daemon runs.
package commands
