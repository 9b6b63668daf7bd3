package testerr

import "errors"

// Err is the error returned by failing dependencies.
var Err = errors.New("test error")

// FailingDep decides per call whether a dependency should fail.
// The zero value never fails.
type FailingDep struct {
	CallIndex         int
	Err               error
	FailAllAfterIndex bool
	FailAtIndex       int
	armed             bool
}

// NewFailingDeps creates failure cases for a number of calls to a dependency.
//
// Dependencies will fail in two ways:
// - A single failure, all calls after succeed.
// - All calls fail after a number of successful calls.
func NewFailingDeps(err error, expectCalls int) []FailingDep {
	deps := make([]FailingDep, 0, expectCalls*2)
	for i := 0; i < expectCalls; i++ {
		deps = append(deps, FailingDep{
			CallIndex:         -1,
			Err:               err,
			FailAllAfterIndex: true,
			FailAtIndex:       i,
			armed:             true,
		}, FailingDep{
			CallIndex:         -1,
			Err:               err,
			FailAllAfterIndex: false,
			FailAtIndex:       i,
			armed:             true,
		})
	}

	return deps
}

// MaybeFailErrFunc fails the call if the dependency is due to fail.
func MaybeFailErrFunc(dep *FailingDep, f func() error) error {
	if dep.armed {
		dep.CallIndex++

		if dep.FailAtIndex == dep.CallIndex {
			return dep.Err
		}

		if dep.FailAllAfterIndex && dep.CallIndex > dep.FailAtIndex {
			return dep.Err
		}
	}

	return f()
}

// MaybeFail fails the call if the dependency is due to fail.
func MaybeFail[T any](dep *FailingDep, f func() (T, error)) (T, error) {
	if dep.armed {
		dep.CallIndex++

		var zero T

		if dep.FailAtIndex == dep.CallIndex {
			return zero, dep.Err
		}

		if dep.FailAllAfterIndex && dep.CallIndex > dep.FailAtIndex {
			return zero, dep.Err
		}
	}

	return f()
}
