package resource

import (
	"context"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"rbacview/internal/notify"
	"rbacview/internal/restclient"
)

// Factory hands out the list/create/delete operations of each resource type.
// All hooks of a factory share one cache and one notifier.
type Factory struct {
	client   *restclient.Client
	cache    *Cache
	notifier notify.Notifier
}

func NewFactory(client *restclient.Client, cache *Cache, notifier notify.Notifier) *Factory {
	if cache == nil {
		cache = NewCache(0)
	}
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Factory{client: client, cache: cache, notifier: notifier}
}

func (f *Factory) Cache() *Cache { return f.cache }

func (f *Factory) Client() *restclient.Client { return f.client }

func (f *Factory) For(kind Kind) (*Hooks, error) {
	b, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return &Hooks{kind: kind, b: b, f: f}, nil
}

// Hooks are the bound operations of one resource type.
type Hooks struct {
	kind     Kind
	b        binding
	f        *Factory
	errTitle func(error) string
}

func (h *Hooks) Kind() Kind { return h.kind }

// WithErrorTitle returns hooks whose failure toasts are titled by fn. An
// empty title keeps the default one.
func (h *Hooks) WithErrorTitle(fn func(error) string) *Hooks {
	cp := *h
	cp.errTitle = fn
	return &cp
}

func (h *Hooks) CanGet() bool    { return h.b.details != nil }
func (h *Hooks) CanCreate() bool { return h.b.create != nil }
func (h *Hooks) CanUpdate() bool { return h.b.update != nil }
func (h *Hooks) CanDelete() bool { return h.b.delete != nil }

// List returns the collection, from cache when it is fresh.
func (h *Hooks) List(ctx context.Context) (Collection, error) {
	select {
	case r := <-h.Fetch(ctx):
		return r.Items, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fetch is the asynchronous form of List.
func (h *Hooks) Fetch(ctx context.Context) <-chan Result {
	return h.f.cache.Fetch(ctx, h.kind, func(ctx context.Context) (Collection, error) {
		items, err := h.f.client.List(ctx, h.b.list())
		return Collection(items), err
	})
}

// Snapshot returns the last fetched collection even if it was invalidated.
func (h *Hooks) Snapshot() (items Collection, stale bool, ok bool) {
	return h.f.cache.Snapshot(h.kind)
}

func (h *Hooks) Invalidate() {
	h.f.cache.Invalidate(h.kind)
}

// Get fetches one record. Details are never cached.
func (h *Hooks) Get(ctx context.Context, t Target) (*unstructured.Unstructured, error) {
	if h.b.details == nil {
		return nil, fmt.Errorf("%w: get %s", ErrUnsupported, h.kind)
	}
	return h.f.client.Get(ctx, h.b.details(t))
}

// Create sends obj to the create endpoint. The collection is invalidated once
// the call settles, whether it succeeded or not.
func (h *Hooks) Create(ctx context.Context, obj *unstructured.Unstructured) error {
	if h.b.create == nil {
		return fmt.Errorf("%w: create %s", ErrUnsupported, h.kind)
	}
	if err := Conform(h.kind, obj); err != nil {
		return err
	}
	target := TargetOf(*obj).String()
	id := h.start("Creating "+h.kind.Singular(), target)

	err := h.f.client.Do(ctx, h.b.create(obj.GetNamespace()), obj.Object, nil)
	h.settle(id, err, h.kind.Singular()+" created", "Create failed", target)
	return err
}

// Update replaces an existing record.
func (h *Hooks) Update(ctx context.Context, obj *unstructured.Unstructured) error {
	if h.b.update == nil {
		return fmt.Errorf("%w: update %s", ErrUnsupported, h.kind)
	}
	if err := Conform(h.kind, obj); err != nil {
		return err
	}
	t := TargetOf(*obj)
	id := h.start("Updating "+h.kind.Singular(), t.String())

	err := h.f.client.Do(ctx, h.b.update(t), obj.Object, nil)
	h.settle(id, err, h.kind.Singular()+" updated", "Update failed", t.String())
	return err
}

// Delete issues one call per target concurrently. There is no atomicity:
// calls that succeeded stay done when another fails. The first failure is
// returned once every call has settled.
func (h *Hooks) Delete(ctx context.Context, targets ...Target) error {
	if h.b.delete == nil {
		return fmt.Errorf("%w: delete %s", ErrUnsupported, h.kind)
	}
	if len(targets) == 0 {
		return nil
	}

	subject := h.kind.Singular()
	detail := targets[0].String()
	if len(targets) > 1 {
		subject = strconv.Itoa(len(targets)) + " " + h.kind.Plural()
		detail = ""
	}
	id := h.start("Deleting "+subject, detail)

	var g errgroup.Group
	for _, t := range targets {
		g.Go(func() error {
			if err := h.f.client.Do(ctx, h.b.delete(t), nil, nil); err != nil {
				return fmt.Errorf("%s: %w", t, err)
			}
			return nil
		})
	}
	err := g.Wait()
	h.settle(id, err, subject+" deleted", "Delete failed", detail)
	return err
}

func (h *Hooks) start(title, msg string) string {
	id := notify.NewID()
	h.f.notifier.Notify(notify.Toast{ID: id, Level: notify.Loading, Title: title, Message: msg, Time: time.Now()})
	return id
}

func (h *Hooks) settle(id string, err error, okTitle, failTitle, msg string) {
	h.f.cache.Invalidate(h.kind)

	t := notify.Toast{ID: id, Level: notify.Success, Title: okTitle, Message: msg, Time: time.Now()}
	if err != nil {
		t.Level = notify.Error
		t.Title = failTitle
		if h.errTitle != nil {
			if title := h.errTitle(err); title != "" {
				t.Title = title
			}
		}
		t.Message = err.Error()
		log.WithError(err).WithField("kind", h.kind).Warn(failTitle)
	}
	h.f.notifier.Notify(t)
}
