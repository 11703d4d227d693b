// Package cli implements the scamsim command tree: the terminal player, the
// plain-text printer, catalog inspection, the web demo and audit tooling.
package cli
