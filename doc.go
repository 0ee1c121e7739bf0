// Package rete provides an incremental Rete network for matching
// rules against facts, including joins and aggregations.
//
// The network and sessions are in package 'core', rules are built in
// `rule`, YAML rule sets are in `ruleset`, and some command-line tools
// are in `cmd`.
package rete
