// Package nas ranks feed-forward classifier architectures without training them.
//
// # Reading Guide
//
// Start with these three files to understand the search:
//   - config.go: ArchitectureConfig and its validation
//   - network.go: the untrained MLP (forward pass, backprop, parameter layout)
//   - search.go: SearchSpace enumeration, cohort selection, scoring and ranking
//
// # Architecture
//
// The nas package defines the scoring contract and the pipeline around it;
// implementations live in sub-packages:
//   - nas/proxy/: the zero-cost proxies (activation correlation, gradient
//     conflict, ZiCo, synflow, GraSP)
//   - nas/trace/: per-build and per-evaluation trace recording
//
// nas/proxy registers its factory via an init() function that sets the
// package-level NewEvaluatorFunc. Callers blank-import nas/proxy.
//
// # Key Interfaces
//
//   - Evaluator: score one built network on one data sample
//
// Raw proxy scores are min-max normalized per metric across the cohort
// (normalize.go) and combined as a weighted sum (ensemble.go). Weights need not
// sum to 1. meta.go maps dataset statistics to a single predicted configuration
// used to seed the cohort in meta mode.
package nas
