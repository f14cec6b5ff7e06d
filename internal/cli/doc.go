// Package cli translates command-line arguments into an app.Config.
package cli
