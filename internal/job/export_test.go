package job

// Exports for testing.

var Transition = transition
