// Package shared holds helpers used across the engine's packages.
//
// The testutil subpackage provides:
//
//   - a buffered slog handler for asserting on log output
//   - a sample market snapshot and the batch result it produces
//
// Example usage:
//
//	func TestHandler(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    result := testutil.SampleResult(t)
//	    ...
//	    testutil.AssertNoErrors(t, logs)
//	}
package shared
