package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/irsalhamdi/sleepoutside/core/cart"
	"github.com/irsalhamdi/sleepoutside/core/checkout"
	"github.com/irsalhamdi/sleepoutside/core/product"
	"github.com/irsalhamdi/sleepoutside/external"
)

// Exit codes of the shop command.
const (
	ExitSuccess      = 0 // the command did what was asked
	ExitFailure      = 1 // the shop refused: invalid form, empty cart, service error
	ExitCommandError = 2 // bad usage or local setup problem
)

// Error codes reported to the user.
const (
	CodeForm     = "E_FORM"
	CodeEmpty    = "E_EMPTY_CART"
	CodeService  = "E_SERVICE"
	CodeNotFound = "E_NOT_FOUND"
	CodeCommand  = "E_COMMAND"
)

type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	if code, _ := classify(err); code != CodeCommand {
		return ExitFailure
	}
	return ExitCommandError
}

// classify picks the user facing code and details of err.
func classify(err error) (string, interface{}) {
	var fe *checkout.FormError
	var se *external.ServiceError

	switch {
	case errors.As(err, &fe):
		return CodeForm, fe.Fields
	case errors.Is(err, checkout.ErrEmptyCart):
		return CodeEmpty, nil
	case errors.Is(err, product.ErrNotFound), errors.Is(err, cart.ErrItemNotFound):
		return CodeNotFound, nil
	case errors.As(err, &se):
		return CodeService, map[string]interface{}{"kind": se.Kind, "status": se.Status, "messages": se.Messages}
	default:
		return CodeCommand, nil
	}
}

// OutputFormatter writes results as text for people or JSON for scripts.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

type CLIResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  *CLIError   `json:"error,omitempty"`
}

type CLIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Success writes data as JSON, or calls text to render it for people.
func (f *OutputFormatter) Success(data interface{}, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}

	if text != nil {
		text(f.Writer)
		return nil
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Failure reports err with its code and details. JSON goes to Writer so
// scripts read a single stream; text goes to ErrWriter.
func (f *OutputFormatter) Failure(err error) error {
	code, details := classify(err)

	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: err.Error(), Details: details},
		})
	}

	w := f.errWriter()
	fmt.Fprintf(w, "Error [%s]: %s\n", code, err)

	switch d := details.(type) {
	case map[string]string:
		for _, k := range sortedKeys(d) {
			fmt.Fprintf(w, "  %s: %s\n", k, d[k])
		}
	case map[string]interface{}:
		if msgs, ok := d["messages"].([]string); ok {
			for _, m := range msgs {
				fmt.Fprintf(w, "  - %s\n", m)
			}
		}
	}
	return nil
}

func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.errWriter(), format+"\n", args...)
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
