package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-fleet/internal/entity"
	"github.com/nerrad567/gray-logic-fleet/internal/shadow"
)

// DefaultMaxRetries is the number of write attempts made when concurrent
// writers keep invalidating the concurrency token.
const DefaultMaxRetries = 3

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry reads and writes fleet entities through a shadow store.
//
// Entities are addressed by kind and service-model ID: the identity key
// for applications and endpoints, device[_module_module] for agents.
type Registry struct {
	store      shadow.Store
	events     EventPublisher
	reports    ReportRecorder
	logger     Logger
	maxRetries int
	now        func() time.Time
}

// NewRegistry creates a registry over store.
func NewRegistry(store shadow.Store) *Registry {
	return &Registry{
		store:      store,
		events:     noopPublisher{},
		logger:     noopLogger{},
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetPublisher sets where change events go. Publish failures are logged
// and never fail the write that caused them.
func (r *Registry) SetPublisher(p EventPublisher) {
	r.events = p
}

// ReportRecorder observes every applied agent report.
type ReportRecorder interface {
	RecordReport(kind, id string, inSync bool)
}

// SetReportRecorder sets an observer for applied reports.
func (r *Registry) SetReportRecorder(rec ReportRecorder) {
	r.reports = rec
}

// SetMaxRetries sets the number of write attempts. Values below 1 mean 1.
func (r *Registry) SetMaxRetries(n int) {
	r.maxRetries = max(n, 1)
}

// ListOptions filters List.
type ListOptions struct {
	SiteID          string
	IncludeDisabled bool

	// ServerState returns the operator's view (desired configuration
	// back-filled from reported state) instead of the consolidated view.
	ServerState bool
}

// Get returns one entity. Returns ErrEntityNotFound when there is no
// record under id or it holds an entity of another kind.
func (r *Registry) Get(ctx context.Context, kind entity.Kind, id string, serverState bool) (entity.Registration, error) {
	rec, err := r.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	decode := entity.Decode
	if serverState {
		decode = entity.DecodeServerState
	}
	reg, ok := decode(rec, kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrEntityNotFound, kind, id)
	}
	return reg, nil
}

// List returns the entities of kind matching opts, ordered by ID. Records
// that fail to decode are skipped.
func (r *Registry) List(ctx context.Context, kind entity.Kind, opts ListOptions) ([]entity.Registration, error) {
	recs, err := r.store.List(ctx, shadow.Query{
		DeviceType:      string(kind),
		SiteID:          opts.SiteID,
		IncludeDisabled: opts.IncludeDisabled,
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s records: %w", kind, err)
	}

	decode := entity.Decode
	if opts.ServerState {
		decode = entity.DecodeServerState
	}
	out := make([]entity.Registration, 0, len(recs))
	for _, rec := range recs {
		reg, ok := decode(rec, kind)
		if !ok {
			r.logger.Debug("skipping undecodable record", "kind", kind, "id", rec.ID, "module_id", rec.ModuleID)
			continue
		}
		out = append(out, reg)
	}
	return out, nil
}

// Register creates a new entity. authority is recorded as the creator of
// applications. Returns ErrEntityExists when the identity is taken.
func (r *Registry) Register(ctx context.Context, reg entity.Registration, authority string) (entity.Registration, error) {
	if err := entity.Validate(reg); err != nil {
		return nil, err
	}

	now := r.now()
	if app, ok := reg.(*entity.ApplicationRegistration); ok {
		app = entity.Clone(app).(*entity.ApplicationRegistration)
		app.CreateTime = entity.Ptr(now.UTC())
		if authority != "" {
			app.CreateAuthorityID = entity.Ptr(authority)
		}
		reg = app
	}

	p, err := entity.BuildPatchAt(nil, reg, now)
	if err != nil {
		return nil, err
	}
	if _, err := r.store.Create(ctx, p); err != nil {
		if errors.Is(err, shadow.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s %s", ErrEntityExists, reg.Kind(), entity.ModuleDeviceID(p.ID, p.ModuleID))
		}
		return nil, fmt.Errorf("creating %s: %w", reg.Kind(), err)
	}

	created, err := r.Get(ctx, reg.Kind(), entity.ModuleDeviceID(p.ID, p.ModuleID), false)
	if err != nil {
		return nil, err
	}
	r.logger.Info("entity registered", "kind", reg.Kind(), "id", created.Base().ID())
	r.publish(ctx, newEvent(EventCreated, created, now))
	return created, nil
}

// Update applies the fields updated sets to the entity kind/id.
//
// A concurrency token on updated is a precondition: a stale token fails
// with ErrConflict without retrying. Without one, lost races are retried
// from a fresh read. The merged result must validate. If the identity
// changes the entity is re-created under its new ID.
func (r *Registry) Update(ctx context.Context, kind entity.Kind, id string, updated entity.Registration, authority string) (entity.Registration, error) {
	if updated == nil {
		return nil, fmt.Errorf("%w: nil registration", entity.ErrInvalidRegistration)
	}
	if updated.Kind() != kind {
		return nil, fmt.Errorf("%w: %s updated as %s", entity.ErrKindMismatch, kind, updated.Kind())
	}
	if kind != entity.KindApplication && kind != entity.KindEndpoint {
		// Agent identities are assigned by the device.
		updated = entity.Clone(updated)
		updated.Base().DeviceID = ""
		updated.Base().ModuleID = nil
	}

	res, err := r.write(ctx, kind, id, updated, writeOptions{validate: true, authority: authority})
	if err != nil {
		return nil, err
	}
	if res.changed {
		t := EventUpdated
		ev := newEvent(t, res.reg, r.now())
		if res.previousID != "" {
			ev.Type = EventRekeyed
			ev.PreviousID = res.previousID
		}
		r.publish(ctx, ev)
	}
	return res.reg, nil
}

// Disable marks the entity disabled and stamps NotSeenSince. Disabling a
// disabled entity changes nothing.
func (r *Registry) Disable(ctx context.Context, kind entity.Kind, id string) (entity.Registration, error) {
	return r.setDisabled(ctx, kind, id, true)
}

// Enable clears the disabled flag and NotSeenSince.
func (r *Registry) Enable(ctx context.Context, kind entity.Kind, id string) (entity.Registration, error) {
	return r.setDisabled(ctx, kind, id, false)
}

func (r *Registry) setDisabled(ctx context.Context, kind entity.Kind, id string, disabled bool) (entity.Registration, error) {
	updated, err := entity.New(kind)
	if err != nil {
		return nil, err
	}
	updated.Base().IsDisabled = entity.Ptr(disabled)

	// Toggling must work on entities that predate the current rules.
	res, err := r.write(ctx, kind, id, updated, writeOptions{})
	if err != nil {
		return nil, err
	}
	if res.changed {
		t := EventEnabled
		if disabled {
			t = EventDisabled
		}
		r.logger.Info("entity "+string(t), "kind", kind, "id", id)
		r.publish(ctx, newEvent(t, res.reg, r.now()))
	}
	return res.reg, nil
}

// Delete removes the entity. A non-empty token must match the stored one.
func (r *Registry) Delete(ctx context.Context, kind entity.Kind, id, token string) error {
	existing, err := r.Get(ctx, kind, id, false)
	if err != nil {
		return err
	}
	rid, mid := entity.RecordKey(kind, id)
	if err := r.store.Delete(ctx, rid, mid, token); err != nil {
		return r.storeError(kind, id, err)
	}
	r.logger.Info("entity deleted", "kind", kind, "id", id)
	r.publish(ctx, newEvent(EventDeleted, existing, r.now()))
	return nil
}

// ApplyReport merges agent-reported state into the entity. Emits
// sync_changed when the in-sync status flips and connected/disconnected
// when the connection state does.
func (r *Registry) ApplyReport(ctx context.Context, kind entity.Kind, id string, reported shadow.Properties, connected *bool) error {
	before, err := r.Get(ctx, kind, id, false)
	if err != nil {
		return err
	}
	rid, mid := entity.RecordKey(kind, id)
	if err := r.store.Report(ctx, rid, mid, reported, connected); err != nil {
		return r.storeError(kind, id, err)
	}
	after, err := r.Get(ctx, kind, id, false)
	if err != nil {
		return err
	}

	if r.reports != nil {
		r.reports.RecordReport(string(kind), id, after.IsInSync())
	}

	now := r.now()
	if before.IsInSync() != after.IsInSync() {
		ev := newEvent(EventSyncChanged, after, now)
		ev.InSync = entity.Ptr(after.IsInSync())
		r.publish(ctx, ev)
	}
	if before.Base().Connected != after.Base().Connected {
		t := EventDisconnected
		if after.Base().Connected {
			t = EventConnected
		}
		r.publish(ctx, newEvent(t, after, now))
	}
	return nil
}

type writeOptions struct {
	validate  bool
	authority string
}

type writeResult struct {
	reg        entity.Registration
	changed    bool
	previousID string
}

// write runs the read-patch-write cycle for one update.
func (r *Registry) write(ctx context.Context, kind entity.Kind, id string, updated entity.Registration, opts writeOptions) (writeResult, error) {
	precondition := updated.Base().ConcurrencyToken

	for attempt := 1; ; attempt++ {
		existing, err := r.Get(ctx, kind, id, false)
		if err != nil {
			return writeResult{}, err
		}
		if precondition != "" && precondition != existing.Base().ConcurrencyToken {
			return writeResult{}, fmt.Errorf("%w: %s %s has changed", ErrConflict, kind, id)
		}
		if opts.validate {
			if err := entity.Validate(entity.Overlay(existing, updated)); err != nil {
				return writeResult{}, err
			}
		}

		now := r.now()
		p, err := entity.BuildPatchAt(existing, updated, now)
		if err != nil {
			return writeResult{}, err
		}
		if p.IsEmpty() {
			return writeResult{reg: existing}, nil
		}
		if kind == entity.KindApplication {
			if p, err = stampUpdate(existing, updated, opts.authority, now); err != nil {
				return writeResult{}, err
			}
		}

		newID := entity.ModuleDeviceID(p.ID, p.ModuleID)
		rekey := newID != existing.Base().ID()
		if rekey {
			err = r.rekey(ctx, existing, p)
		} else {
			_, err = r.store.Update(ctx, p.ID, p.ModuleID, p, p.ConcurrencyToken)
		}

		if errors.Is(err, shadow.ErrConcurrencyConflict) && precondition == "" && attempt < r.maxRetries {
			r.logger.Debug("write conflict, retrying", "kind", kind, "id", id, "attempt", attempt)
			continue
		}
		if err != nil {
			return writeResult{}, r.storeError(kind, id, err)
		}

		reg, err := r.Get(ctx, kind, newID, false)
		if err != nil {
			return writeResult{}, err
		}
		res := writeResult{reg: reg, changed: true}
		if rekey {
			res.previousID = existing.Base().ID()
			r.logger.Info("entity re-keyed", "kind", kind, "from", res.previousID, "to", newID)
		}
		return res, nil
	}
}

// stampUpdate rebuilds an application patch with the update authority and
// time set.
func stampUpdate(existing, updated entity.Registration, authority string, now time.Time) (*shadow.Patch, error) {
	app := entity.Clone(updated).(*entity.ApplicationRegistration)
	app.UpdateTime = entity.Ptr(now.UTC())
	if authority != "" {
		app.UpdateAuthorityID = entity.Ptr(authority)
	}
	return entity.BuildPatchAt(existing, app, now)
}

// rekey moves existing to the record p creates. If the old record cannot
// be removed the new one is rolled back so a retry starts clean.
func (r *Registry) rekey(ctx context.Context, existing entity.Registration, p *shadow.Patch) error {
	if _, err := r.store.Create(ctx, p); err != nil {
		if errors.Is(err, shadow.ErrAlreadyExists) {
			return fmt.Errorf("%w: %s %s", ErrEntityExists, existing.Kind(), entity.ModuleDeviceID(p.ID, p.ModuleID))
		}
		return fmt.Errorf("creating re-keyed record: %w", err)
	}

	c := existing.Base()
	oldID, oldModule := entity.RecordKey(existing.Kind(), c.ID())
	if err := r.store.Delete(ctx, oldID, oldModule, c.ConcurrencyToken); err != nil {
		if rbErr := r.store.Delete(ctx, p.ID, p.ModuleID, ""); rbErr != nil {
			r.logger.Error("failed to roll back re-keyed record",
				"kind", existing.Kind(), "id", entity.ModuleDeviceID(p.ID, p.ModuleID), "error", rbErr)
		}
		return err
	}
	return nil
}

func (r *Registry) load(ctx context.Context, kind entity.Kind, id string) (*shadow.Record, error) {
	rid, mid := entity.RecordKey(kind, id)
	rec, err := r.store.Get(ctx, rid, mid)
	if err != nil {
		return nil, r.storeError(kind, id, err)
	}
	return rec, nil
}

// storeError maps store sentinels onto registry ones.
func (r *Registry) storeError(kind entity.Kind, id string, err error) error {
	switch {
	case errors.Is(err, shadow.ErrNotFound):
		return fmt.Errorf("%w: %s %s", ErrEntityNotFound, kind, id)
	case errors.Is(err, shadow.ErrConcurrencyConflict):
		return fmt.Errorf("%w: %s %s", ErrConflict, kind, id)
	case errors.Is(err, ErrEntityExists), errors.Is(err, ErrEntityNotFound), errors.Is(err, ErrConflict):
		return err
	default:
		return fmt.Errorf("%s %s: %w", kind, id, err)
	}
}

func (r *Registry) publish(ctx context.Context, e Event) {
	if err := r.events.PublishEvent(ctx, e); err != nil {
		r.logger.Warn("failed to publish fleet event", "event", e.Type, "kind", e.Kind, "id", e.EntityID, "error", err)
	}
}
