// Package commands defines the disneyctl CLI, a terminal client for the Disney character API.
//
// Commands
//
//   - list     Print one page of characters
//   - search   Search characters by name
//   - show     Print the details of one character
//   - browse   Interactive list view (n/p/s/r/d/q)
//
// The root command loads the same environment configuration as the web server
// and builds one API client before any subcommand runs.
package commands
