package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/letterdrop/letterdrop/internal/errorz"
	"github.com/letterdrop/letterdrop/internal/web/sessions"
)

// mapper is a generic HTTP handler that maps requests to target
// function calls and writes the output to the response.
type mapper[IN, OUT any] struct {
	s         *Server
	req       func(*http.Request) (IN, error)
	target    func(context.Context, IN) (OUT, error)
	onSuccess func(result[IN, OUT]) error
	onFail    func(w http.ResponseWriter, r *http.Request, err error)
}

// result is the result of a succesful request.
// it contains all relevant data because we can't know
// in advance what we will need to construct a response.
type result[IN, OUT any] struct {
	s    *Server
	w    http.ResponseWriter
	r    *http.Request
	sess *sessions.Session
	in   IN
	out  OUT
}

// newHandler creates a HTTP Handler that:
// 1. Maps the request to a value of input type IN.
// 2. Calls the target func with that value.
// 3. Hands the output of type OUT to the onSuccess func.
//
// Errors are written using the server error handler unless onFail is
// overwritten.
func newHandler[IN, OUT any](s *Server, targetFunc func(context.Context, IN) (OUT, error)) *mapper[IN, OUT] {
	return &mapper[IN, OUT]{
		s: s,
		req: func(r *http.Request) (IN, error) {
			return decodeRequest[IN](s, r)
		},
		target: targetFunc,
		onFail: func(w http.ResponseWriter, r *http.Request, err error) {
			s.handleError(w, r, err)
		},
	}
}

// newInputHandler is newHandler for target funcs without an output.
func newInputHandler[IN any](s *Server, targetFunc func(context.Context, IN) error) *mapper[IN, struct{}] {
	return newHandler(s, func(ctx context.Context, in IN) (struct{}, error) {
		return struct{}{}, targetFunc(ctx, in)
	})
}

func (m *mapper[IN, OUT]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromCtx(r.Context())
	if err != nil {
		m.s.handleError(w, r, err)
		return
	}

	in, err := m.req(r)
	if err != nil {
		m.onFail(w, r, err)
		return
	}

	out, err := m.target(r.Context(), in)
	if err != nil {
		m.onFail(w, r, err)
		return
	}

	err = m.onSuccess(result[IN, OUT]{
		s:    m.s,
		w:    w,
		r:    r,
		sess: sess,
		in:   in,
		out:  out,
	})
	if err != nil {
		m.s.handleError(w, r, err)
	}
}

// decodeRequest maps a form or query string to a value of type IN.
func decodeRequest[IN any](s *Server, r *http.Request) (IN, error) {
	var in IN
	err := r.ParseForm()
	if err != nil {
		return in, errorz.InvalidInput{err}
	}

	err = s.decoder.Decode(&in, r.Form)
	return in, decodeError(err)
}

// decodeError converts schema decoding errors to invalid input errors,
// so they map to a 400 instead of a 500.
func decodeError(err error) error {
	if err == nil {
		return nil
	}

	var multiErr schema.MultiError
	if errors.As(err, &multiErr) {
		var invalidInput errorz.InvalidInput
		for key, e := range multiErr {
			invalidInput = append(invalidInput, errorz.Keyed{
				Key: key,
				Err: e,
			})
		}

		return invalidInput
	}

	return err
}
