package tools

import "fmt"

// Result statuses reported back to the model.
const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusError   = "error"
)

// Status is embedded in every tool result. Tools never return Go errors to
// the agent runtime: failures are folded into an error status and a message
// the model can act on.
type Status struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// OK reports whether the tool succeeded.
func (s Status) OK() bool { return s.Status == StatusSuccess }

func (s Status) status() Status { return s }

func succeeded(format string, a ...any) Status {
	return Status{Status: StatusSuccess, Message: fmt.Sprintf(format, a...)}
}

func warned(format string, a ...any) Status {
	return Status{Status: StatusWarning, Message: fmt.Sprintf(format, a...)}
}

func failed(format string, a ...any) Status {
	return Status{Status: StatusError, Message: fmt.Sprintf(format, a...)}
}
