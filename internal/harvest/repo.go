package harvest

import (
	"context"
	"errors"
	"log"

	"jobharvest-engine/internal/statestore"
)

// Repo is the workflow view of the state store for one tab session.
type Repo struct {
	store   statestore.Store
	session string
}

func NewRepo(store statestore.Store, session string) Repo {
	return Repo{store: store, session: session}
}

// Active returns the persisted workflow, or nil when idle. Records that fail
// to decode are deleted and skipped.
func (r Repo) Active(ctx context.Context) (WorkflowState, error) {
	for _, k := range Kinds {
		b, err := r.store.Get(ctx, r.session, string(k))
		if errors.Is(err, statestore.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ws, err := decodeState(k, b)
		if err != nil {
			log.Printf("[harvest] discard corrupt state session=%s kind=%s err=%v", r.session, k, err)
			if derr := r.store.Delete(ctx, r.session, string(k)); derr != nil {
				log.Printf("[harvest] delete corrupt state session=%s kind=%s err=%v", r.session, k, derr)
			}
			continue
		}
		return ws, nil
	}
	return nil, nil
}

// Save overwrites the record for ws.Kind().
func (r Repo) Save(ctx context.Context, ws WorkflowState) error {
	b, err := encodeState(ws)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, r.session, string(ws.Kind()), b)
}

func (r Repo) Clear(ctx context.Context, k Kind) error {
	return r.store.Delete(ctx, r.session, string(k))
}

// ClearAll removes every workflow record of the session.
func (r Repo) ClearAll(ctx context.Context) error {
	var first error
	for _, k := range Kinds {
		if err := r.store.Delete(ctx, r.session, string(k)); err != nil && first == nil {
			first = err
		}
	}
	return first
}
