package err

import "encoding/json"

// ConfigurationError represents errors that are a result of an incomplete table
// definition, bad flags, configuration settings or other setup issues. They are
// surfaced at setup time and are not recoverable by retrying.
type ConfigurationError struct {
	Err error
}

// ExecutionError represents errors that occur after a table has been configured
// and an unsuccessful result occurs, such as a template failing to execute or a
// data file that cannot be read.
type ExecutionError struct {
	// friendly error message to display to the user
	Msg string
	// Err is the error that occurred during execution
	Err error
	// Optional attributes that can be used to provide additional context to the error
	Attrs []any
}

func (e *ConfigurationError) Error() string {
	return e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Error() string {
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Will try and json unmarshal an error string into a slice of interfaces
// that match the slog algorithm for varadic parameters (alternating key value pairs)
func TryConvertErrorToAttrs(err error) []any {
	var result map[string]any
	umError := json.Unmarshal([]byte(err.Error()), &result)
	if umError != nil {
		return nil
	}
	attrs := make([]any, 0, len(result)*2)
	for k, v := range result {
		attrs = append(attrs, k, v)
	}
	return attrs
}

// ErrorsBucket collects several independent problems, for example every invalid
// column of a table definition file, so they can be reported together.
type ErrorsBucket struct {
	Msg    string
	Errors []error
}

func (e *ErrorsBucket) Error() string {
	s := e.Msg
	for _, err := range e.Errors {
		s += "\n\t" + err.Error()
	}
	return s
}

// Add appends err when it is not nil.
func (e *ErrorsBucket) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// ErrorOrNil returns the bucket when it holds at least one error.
func (e *ErrorsBucket) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}
