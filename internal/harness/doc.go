// Package harness runs conformance scenarios against the transpiler.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: deploy
//	description: "mkdir and rm become idempotent"
//	script: ../scripts/deploy.yaml
//	config:
//	  verify: basic
//	expect:
//	  outcome: compiled
//	golden: ../golden/deploy.golden
//	assertions:
//	  - type: script_contains
//	    text: mkdir -p
//	  - type: fix_count
//	    kind: idempotency
//	    count: 2
//
// Script and golden paths are relative to the scenario file. Config takes
// the same keys as a puresh config file and defaults to DefaultConfig.
//
// # Outcomes
//
//   - compiled: the script transpiled
//   - rejected: validation (E1xx) or verification (V2xx) refused it; codes
//     lists the reported codes in order
//   - failed: any other stage error, or kind decode for a malformed tree
//     document
//
// # Assertion Types
//
//   - script_contains / script_excludes: substring of the emitted script
//   - line_order: substrings matched by script lines in order
//   - fix_count: number of purification fixes, optionally of one kind
//   - warning: a warning code is present, or present exactly count times
//   - warning_count: total number of warnings
//
// # Principles
//
// Every compiled scenario is also checked for determinism (a second
// transpile yields the same text and digest) and idempotence (purifying the
// purified tree logs no fixes and changes nothing).
package harness
