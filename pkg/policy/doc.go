// Package policy provides the allow/deny gate consulted before any external
// script load is attempted.
//
// The Gate interface is a pure predicate: given an action kind and a caller
// identity it returns whether the action is permitted. The loader treats a
// false return as an unconditional short-circuit with no side effects.
//
// # Rule-based Gate
//
// RuleGate evaluates an ordered YAML rule set; the first matching rule wins
// and a configurable default applies when nothing matches:
//
//	default: allow
//	rules:
//	  - name: block unknown rtd vendors
//	    action: LOAD_EXTERNAL_SCRIPT
//	    caller_kind: rtd
//	    caller_id: "vendor-*"
//	    effect: deny
//
// Matcher fields support glob patterns; empty fields match anything.
//
// # Hot Reload
//
// Watcher reloads the rule file on change (debounced). The gitsource
// subpackage can additionally keep a local checkout of a rules repository in
// sync, so rules are distributed through normal review workflows.
package policy
