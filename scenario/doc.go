// Package scenario runs scripted store interactions and records what readers saw.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: async_race
//	description: "Only the most recently started async write lands"
//	seed:
//	  a: 1
//	  b: 2
//	readers:
//	  - name: total
//	    keys: [a, b]
//	    derive: sum
//	steps:
//	  - set: { key: a, value: 4 }
//	  - set_async: { key: k, value: A, delay: 10 }
//	  - set_async: { key: k, value: B, delay: 1, placeholder: loading }
//	  - wait: true
//	  - expect: { key: k, value: B }
//	  - expect: { reader: total, value: 6, notifications: 1 }
//
// Async factories never sleep. Each set_async step parks its factory until a
// wait step releases pending factories in order of virtual delay, then start
// order, and delivers each result through a queue flushed by the runner, so
// traces are deterministic.
//
// # Strategies
//
// derive: sum, concat, count, first, tuple. equal: identity (default), deep, numeric.
package scenario
