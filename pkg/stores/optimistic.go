package stores

import "context"

// The stores follow a strict threading model borrowed from the UI event
// loop that hosts them: store state is read and written only on the UI
// goroutine. A mutating call therefore happens in two halves:
//
//  1. synchronously, on the UI goroutine: snapshot the current value
//     and apply the speculative change, then return a Mutation;
//  2. the host runs the Mutation on any goroutine (it only does
//     network I/O) and delivers the Outcome back to the UI goroutine,
//     where Apply reconciles the speculative state with the server
//     copy or reverts it to the snapshot.
//
// Create is the exception: it needs the server-minted id, so nothing is
// applied speculatively and the Outcome inserts the server copy.

// Mutation is the deferred remote half of a store call.
type Mutation func(ctx context.Context) Outcome

// Outcome carries the reconcile-or-revert closure back to the UI
// goroutine. Err is non-nil when the remote call failed and Apply will
// revert; the host surfaces it to the user after applying.
type Outcome struct {
	Apply func()
	Err   error
}

// apply runs the remote call and pairs its result with the right
// closure. confirm receives the successful response; revert restores
// the pre-mutation snapshot.
func apply[T any](ctx context.Context, call func(ctx context.Context) (T, error), confirm func(T), revert func()) Outcome {
	v, err := call(ctx)
	if err != nil {
		return Outcome{Apply: revert, Err: err}
	}
	return Outcome{Apply: func() { confirm(v) }}
}
