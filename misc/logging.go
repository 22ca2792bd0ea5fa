package misc

import "github.com/BrugadaSyndrome/bslogger"

// Verbosity is used by every logger created after it is set.
var Verbosity = bslogger.Normal

// Verbose turns on debug output for loggers created from now on.
func Verbose() {
	Verbosity = bslogger.All
}
