package cli

// Exports for testing.

var DeriveOutputPath = deriveOutputPath
