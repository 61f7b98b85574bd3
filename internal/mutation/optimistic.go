// Package mutation applies writes to the collaborator, optimistically where the write allows it.
package mutation

import "context"

// Optimistic is a local change applied before the collaborator confirms it.
//
// Run takes a snapshot, applies the change, then calls Remote. On success the
// authoritative result is written with Reconcile, on failure Restore puts the
// snapshot back exactly.
type Optimistic[S, R any] struct {
	Snapshot  func() (S, error)
	Apply     func(S)
	Remote    func(ctx context.Context) (R, error)
	Reconcile func(S, R)
	Restore   func(S)
}

func (o Optimistic[S, R]) Run(ctx context.Context) (R, error) {
	var zero R

	snap, err := o.Snapshot()
	if err != nil {
		return zero, err
	}

	o.Apply(snap)

	res, err := o.Remote(ctx)
	if err != nil {
		o.Restore(snap)
		return zero, err
	}

	o.Reconcile(snap, res)
	return res, nil
}
