package updater

import "time"

// Progress phases.
const (
	PhaseConnecting  = "connecting"
	PhaseErasing     = "erasing"
	PhaseProgramming = "programming"
	PhaseVerifying   = "verifying"
	PhaseStarting    = "starting"
	PhaseComplete    = "complete"
)

// Progress contains information about the programming progress.
// Passed to ProgressCallback during programming operations.
type Progress struct {
	// Phase describes the current operation phase:
	//   "connecting"  - Synchronising and pinging the boot loader
	//   "erasing"     - Download sent, device erasing the image range
	//   "programming" - Sending image data
	//   "verifying"   - Checking the final status
	//   "starting"    - Starting the application
	//   "complete"    - Operation completed successfully
	Phase string

	// CurrentChunk is the number of Send Data packets accepted so far
	CurrentChunk int

	// TotalChunks is the number of Send Data packets in the image
	TotalChunks int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// BytesWritten is the total number of bytes sent so far
	BytesWritten int

	// TotalBytes is the image size
	TotalBytes int

	// ElapsedTime is the time elapsed since programming started
	ElapsedTime time.Duration
}

// ProgressCallback is called periodically during programming to report progress.
// Implementations should return quickly to avoid blocking the programming operation.
//
// Example:
//
//	prog := updater.New(t,
//	    updater.WithProgressCallback(func(p updater.Progress) {
//	        fmt.Printf("[%s] %.1f%% - %d/%d bytes\n",
//	            p.Phase, p.Percentage, p.BytesWritten, p.TotalBytes)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the programmer.
// This allows integration with any logging framework.
//
// Example with glog:
//
//	type GLogger struct{}
//	func (GLogger) Debug(msg string, kv ...interface{}) { glog.V(1).Infoln(msg, kv) }
//	func (GLogger) Info(msg string, kv ...interface{})  { glog.Infoln(msg, kv) }
//	func (GLogger) Error(msg string, kv ...interface{}) { glog.Errorln(msg, kv) }
//
//	prog := updater.New(t, updater.WithLogger(GLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
