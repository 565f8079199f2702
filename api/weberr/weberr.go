// Package weberr decorates errors with what the errors middleware needs:
// the body and status sent to the client and extra log fields.
package weberr

import "errors"

type Opt func(error) error

// Wrap applies opts to err in order.
func Wrap(err error, opts ...Opt) error {
	for _, opt := range opts {
		err = opt(err)
	}
	return err
}

func WithResponse(body interface{}, status int) Opt {
	return func(err error) error {
		return &responseError{error: err, body: body, status: status}
	}
}

func WithFields(fields map[string]interface{}) Opt {
	return func(err error) error {
		return &fieldsError{error: err, fields: fields}
	}
}

type responder interface {
	Response() (body interface{}, status int)
}

// Response finds the outermost response attached to err.
func Response(err error) (body interface{}, status int, ok bool) {
	var re responder
	if errors.As(err, &re) {
		body, status = re.Response()
		return body, status, true
	}
	return nil, 0, false
}

type fielder interface {
	Fields() map[string]interface{}
}

// Fields merges every set of log fields attached along err's chain. Outer
// fields win.
func Fields(err error) (map[string]interface{}, bool) {
	var out map[string]interface{}
	for e := err; e != nil; e = errors.Unwrap(e) {
		f, ok := e.(fielder)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]interface{})
		}
		for k, v := range f.Fields() {
			if _, set := out[k]; !set {
				out[k] = v
			}
		}
	}
	return out, out != nil
}

type responseError struct {
	error
	body   interface{}
	status int
}

func (e *responseError) Response() (interface{}, int) { return e.body, e.status }

func (e *responseError) Unwrap() error { return e.error }

type fieldsError struct {
	error
	fields map[string]interface{}
}

func (e *fieldsError) Fields() map[string]interface{} { return e.fields }

func (e *fieldsError) Unwrap() error { return e.error }
