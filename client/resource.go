package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"

	"github.com/pkg/errors"
)

// ResourceConfig describes one REST collection.
type ResourceConfig[T any] struct {
	Name         string // singular, used in notifications
	Path         string // collection path, e.g. /api/users/students
	UpdateMethod string // PUT or PATCH; defaults to PATCH

	ID    func(T) string
	Label func(T) string // identifying fields shown before a delete

	// Check runs after the shared rules and before dispatch, e.g. score bounds.
	Check func(fields interface{}) error
}

// Resource runs the list/create/update/delete workflow of one entity type:
// mutations are serialized and always followed by a re-fetch of the listing,
// a failed listing keeps the previous items, and responses arriving after Close are dropped.
type Resource[T any] struct {
	c   *Client
	cfg ResourceConfig[T]

	mu       sync.Mutex
	items    []T
	total    int
	filter   url.Values
	loading  bool
	inFlight bool
	closed   bool
	err      error
}

func NewResource[T any](c *Client, cfg ResourceConfig[T]) *Resource[T] {
	if cfg.UpdateMethod == "" {
		cfg.UpdateMethod = http.MethodPatch
	}
	return &Resource[T]{c: c, cfg: cfg}
}

// Items returns a copy of the last listing that succeeded.
func (r *Resource[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.items...)
}

// Total is the number of matches of the last listing, across pages.
func (r *Resource[T]) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Err is the error of the last listing, nil when it succeeded.
func (r *Resource[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Resource[T]) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// InFlight reports whether a mutation is running; controls that trigger one should be disabled.
func (r *Resource[T]) InFlight() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}

// Close marks the workflow dead. Requests already sent are not cancelled, their results are ignored.
func (r *Resource[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *Resource[T]) alive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed
}

func (r *Resource[T]) detailPath(id string) string {
	return r.cfg.Path + "/" + url.PathEscape(id)
}

// List fetches the current server state. On failure the previous items are returned with the error.
func (r *Resource[T]) List(ctx context.Context, filter url.Values) ([]T, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	r.loading = true
	r.filter = cloneValues(filter)
	r.mu.Unlock()

	res, err := r.c.do(ctx, http.MethodGet, r.cfg.Path, filter, nil)
	var items []T
	if err == nil {
		err = errors.Wrap(json.Unmarshal(res.data, &items), "decoding listing")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = false
	if r.closed {
		return nil, ErrClosed
	}
	r.err = err
	if err != nil {
		r.c.notifyError(err)
		return append([]T(nil), r.items...), err
	}
	if items == nil {
		items = []T{}
	}
	r.items = items
	r.total = len(items)
	if res.total >= 0 {
		r.total = res.total
	}
	return append([]T(nil), items...), nil
}

// refresh re-runs the last listing; its failure is already notified.
func (r *Resource[T]) refresh(ctx context.Context) {
	r.mu.Lock()
	filter := r.filter
	r.mu.Unlock()
	_, _ = r.List(ctx, filter)
}

func (r *Resource[T]) begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.closed:
		return ErrClosed
	case r.inFlight:
		return ErrInFlight
	}
	r.inFlight = true
	return nil
}

func (r *Resource[T]) end() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight = false
}

func (r *Resource[T]) prevalidate(fields interface{}) error {
	if err := r.c.Prevalidate(fields); err != nil {
		return err
	}
	if r.cfg.Check != nil {
		return r.cfg.Check(fields)
	}
	return nil
}

// mutate sends one mutating call, notifies its outcome and re-fetches the listing.
func (r *Resource[T]) mutate(ctx context.Context, method, path string, body interface{}, success string) (T, error) {
	var out T
	if err := r.begin(); err != nil {
		return out, err
	}
	defer r.end()

	res, err := r.c.do(ctx, method, path, nil, body)
	if err == nil && len(res.data) > 0 {
		err = errors.Wrap(json.Unmarshal(res.data, &out), "decoding response data")
	}
	if !r.alive() {
		var zero T
		return zero, ErrClosed
	}
	if err != nil {
		r.c.notifyError(err)
		if IsNotFound(err) {
			r.refresh(ctx)
		}
		return out, err
	}
	r.c.notifySuccess(success)
	r.refresh(ctx)
	return out, nil
}

// Create pre-validates fields with the shared rules before dispatch; the server re-validates.
func (r *Resource[T]) Create(ctx context.Context, fields interface{}) (T, error) {
	if err := r.prevalidate(fields); err != nil {
		var zero T
		return zero, err
	}
	return r.mutate(ctx, http.MethodPost, r.cfg.Path, fields, r.cfg.Name+" created")
}

// Update sends a partial patch: only the set fields change, last write wins.
func (r *Resource[T]) Update(ctx context.Context, id string, patch interface{}) (T, error) {
	if err := r.prevalidate(patch); err != nil {
		var zero T
		return zero, err
	}
	return r.mutate(ctx, r.cfg.UpdateMethod, r.detailPath(id), patch, r.cfg.Name+" updated")
}

// RequestDelete starts the confirmation step; nothing is sent until Confirm.
func (r *Resource[T]) RequestDelete(entity T) *DeleteConfirmation {
	d := &DeleteConfirmation{ID: r.cfg.ID(entity)}
	if r.cfg.Label != nil {
		d.Label = r.cfg.Label(entity)
	}
	d.confirm = func(ctx context.Context) error {
		_, err := r.mutate(ctx, http.MethodDelete, r.detailPath(d.ID), nil, r.cfg.Name+" deleted")
		return err
	}
	d.inFlight = r.InFlight
	return d
}

// DeleteConfirmation is a pending irreversible delete.
type DeleteConfirmation struct {
	ID    string
	Label string

	mu       sync.Mutex
	settled  bool
	confirm  func(ctx context.Context) error
	inFlight func() bool
}

// Confirm sends the DELETE once. A transport failure leaves the confirmation open for another try.
func (d *DeleteConfirmation) Confirm(ctx context.Context) error {
	d.mu.Lock()
	if d.settled {
		d.mu.Unlock()
		return ErrConfirmationSettled
	}
	d.settled = true
	d.mu.Unlock()

	err := d.confirm(ctx)
	var netErr *NetworkError
	if errors.As(err, &netErr) || errors.Is(err, ErrInFlight) {
		d.mu.Lock()
		d.settled = false
		d.mu.Unlock()
	}
	return err
}

// Cancel drops the pending delete without a network call.
func (d *DeleteConfirmation) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settled = true
}

// InFlight reports whether the confirm action should be disabled.
func (d *DeleteConfirmation) InFlight() bool {
	return d.inFlight()
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
