// Package analysis contains the orchestration core for stock analysis
// runs: the request/result envelope types, the depth-to-configuration
// policy, the localized risk report formatter, and the orchestrator
// that drives a run while relaying progress to live observers.
package analysis
