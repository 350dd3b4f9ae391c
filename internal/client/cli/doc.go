// Package cli provides the interactive wallet command-line client.
//
// It wires configuration, a local SQLite ledger, the transaction engine and
// a simulated payment processor behind a REPL. Purchases, swaps and stakes
// run through the same flows the server uses, with the confirmation steps
// answered at the prompt.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See NewApp and runREPL for details.
package cli
