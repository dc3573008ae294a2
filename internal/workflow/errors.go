package workflow

import (
	"context"
	"errors"

	"github.com/jakopako/extraduty/internal/browser"
	"github.com/jakopako/extraduty/internal/locator"
	"github.com/jakopako/extraduty/internal/wait"
)

// ErrorKind names the class of a failure for logs and the run summary.
type ErrorKind string

const (
	KindNone       ErrorKind = ""
	KindConnection ErrorKind = "connection"
	KindTransient  ErrorKind = "transient"
	KindResolution ErrorKind = "resolution"
	KindTimeout    ErrorKind = "timeout"
	KindCancelled  ErrorKind = "cancelled"
	KindOutput     ErrorKind = "output"
	KindUnexpected ErrorKind = "unexpected"
)

// errOutput marks failures of the writer.
var errOutput = errors.New("could not write results")

// Classify returns the kind of err. Resolution failures are checked before
// transient ones since a role that could not be found also counts as a
// missing element.
func Classify(err error) ErrorKind {
	var nf *locator.NotFoundError
	var amb *locator.AmbiguousError
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, browser.ErrConnection):
		return KindConnection
	case errors.As(err, &nf), errors.As(err, &amb):
		return KindResolution
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, wait.ErrTimeout):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case browser.IsTransient(err):
		return KindTransient
	case errors.Is(err, errOutput):
		return KindOutput
	default:
		return KindUnexpected
	}
}
