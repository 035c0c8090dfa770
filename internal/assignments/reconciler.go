package assignments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maisoncleo/atelier-tracker/internal/production"
)

var ErrInvalidStatus = errors.New("invalid production status")

// Reconciler keeps assignments and production statuses consistent: an item has
// an assignment exactly when its status is not a_faire.
type Reconciler struct {
	assignments *Store
	dispatcher  *production.Dispatcher
	logger      logrus.FieldLogger
}

func NewReconciler(assignments *Store, dispatcher *production.Dispatcher, logger logrus.FieldLogger) *Reconciler {
	return &Reconciler{
		assignments: assignments,
		dispatcher:  dispatcher,
		logger:      logger.WithField("module", "assignments"),
	}
}

func (r *Reconciler) Assignments() *Store { return r.assignments }

// Resolve turns a raw article id into a key, looking bare line item ids up in production.
func (r *Reconciler) Resolve(ctx context.Context, raw string) (production.Key, error) {
	return ResolveArticle(ctx, r.dispatcher.Statuses(), raw)
}

// AssignRequest carries the fields of a create/update assignment call.
type AssignRequest struct {
	Key            production.Key
	TricoteuseID   string
	TricoteuseName string
	Status         string // defaults to en_cours
	Urgent         bool
}

// Assign upserts the assignment then mirrors status and assignee onto production.
func (r *Reconciler) Assign(ctx context.Context, req AssignRequest) (*Assignment, error) {
	if req.Status == "" {
		req.Status = production.InProgress
	}
	if !production.ValidStatus(req.Status) || req.Status == production.Todo {
		return nil, fmt.Errorf("assign %s: %w: %q", req.Key, ErrInvalidStatus, req.Status)
	}

	a, err := r.assignments.Upsert(ctx, Assignment{
		OrderID:        req.Key.OrderID,
		LineItemID:     req.Key.LineItemID,
		TricoteuseID:   req.TricoteuseID,
		TricoteuseName: req.TricoteuseName,
		Status:         req.Status,
		Urgent:         req.Urgent,
	})
	if err != nil {
		return nil, fmt.Errorf("assign %s: %w", req.Key, err)
	}

	t, err := r.dispatcher.TypeFor(ctx, req.Key)
	if err != nil {
		return nil, fmt.Errorf("assign %s: %w", req.Key, err)
	}
	name := req.TricoteuseName
	if _, err := r.dispatcher.Statuses().SetAssignee(ctx, req.Key, req.Status, &name, t); err != nil {
		return nil, fmt.Errorf("assign %s: %w", req.Key, err)
	}
	r.logger.WithFields(logrus.Fields{
		"article":    a.ArticleID,
		"tricoteuse": req.TricoteuseName,
		"status":     req.Status,
	}).Info("item assigned")
	return a, nil
}

// Unassign deletes the assignment referenced by ref, either its record id or an
// article id, and moves the item's status back to a_faire even when no
// assignment existed. It reports whether an assignment was deleted.
func (r *Reconciler) Unassign(ctx context.Context, ref string) (bool, error) {
	key, err := r.keyForRef(ctx, ref)
	if err != nil {
		return false, err
	}

	deleted, err := r.assignments.Delete(ctx, key)
	if err != nil {
		return false, fmt.Errorf("unassign %s: %w", key, err)
	}

	st, err := r.dispatcher.Statuses().Get(ctx, key)
	if err != nil {
		return deleted, fmt.Errorf("unassign %s: %w", key, err)
	}
	if st != nil {
		if _, err := r.dispatcher.Statuses().SetAssignee(ctx, key, production.Todo, nil, st.ProductionType); err != nil {
			return deleted, fmt.Errorf("unassign %s: %w", key, err)
		}
	}
	r.logger.WithFields(logrus.Fields{"article": key.String(), "deleted": deleted}).Info("item unassigned")
	return deleted, nil
}

func (r *Reconciler) keyForRef(ctx context.Context, ref string) (production.Key, error) {
	if _, err := uuid.Parse(ref); err == nil {
		a, err := r.assignments.GetByID(ctx, ref)
		if err != nil {
			return production.Key{}, err
		}
		if a == nil {
			return production.Key{}, ErrArticleNotFound
		}
		return a.Key(), nil
	}
	key, err := r.Resolve(ctx, ref)
	if !errors.Is(err, ErrArticleNotFound) {
		return key, err
	}
	// the status row may be gone while an orphan assignment remains
	lineItemID, perr := strconv.ParseInt(strings.TrimSpace(ref), 10, 64)
	if perr != nil {
		return production.Key{}, err
	}
	orphans, lerr := r.assignments.ListByLineItem(ctx, lineItemID)
	if lerr != nil {
		return production.Key{}, lerr
	}
	switch len(orphans) {
	case 0:
		return production.Key{}, ErrArticleNotFound
	case 1:
		return orphans[0].Key(), nil
	default:
		return production.Key{}, ErrAmbiguousArticle
	}
}

// SetStatus updates an existing production status, then deletes the assignment
// when the item went back to a_faire or mirrors the status onto it otherwise.
func (r *Reconciler) SetStatus(ctx context.Context, key production.Key, status string, notes *string, urgent *bool) (*production.Status, error) {
	if !production.ValidStatus(status) {
		return nil, fmt.Errorf("set status %s: %w: %q", key, ErrInvalidStatus, status)
	}
	st, err := r.dispatcher.Statuses().SetState(ctx, key, status, notes, urgent)
	if err != nil {
		return nil, err
	}

	if status == production.Todo {
		if _, err := r.assignments.Delete(ctx, key); err != nil {
			return st, fmt.Errorf("set status %s: %w", key, err)
		}
		return st, nil
	}
	name := ""
	if st.AssignedTo != nil {
		name = *st.AssignedTo
	}
	if _, err := r.assignments.SetStatus(ctx, key, status, name); err != nil {
		return st, fmt.Errorf("set status %s: %w", key, err)
	}
	return st, nil
}

// Reconcile repairs assignments against production statuses. Production wins:
// assignments of a_faire or unknown items are removed, the rest take the
// production status. A second run with no writes in between changes nothing.
func (r *Reconciler) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult

	all, err := r.assignments.List(ctx)
	if err != nil {
		return res, err
	}
	statuses, err := r.dispatcher.Statuses().List(ctx)
	if err != nil {
		return res, err
	}
	byKey := make(map[production.Key]production.Status, len(statuses))
	for _, st := range statuses {
		byKey[st.Key()] = st
	}

	for _, a := range all {
		st, ok := byKey[a.Key()]
		switch {
		case !ok || st.Status == production.Todo:
			if _, err := r.assignments.Delete(ctx, a.Key()); err != nil {
				return res, err
			}
			res.RemovedCount++
		case st.Status != a.Status:
			if _, err := r.assignments.SetStatus(ctx, a.Key(), st.Status, a.TricoteuseName); err != nil {
				return res, err
			}
			res.SyncedCount++
		}
	}
	r.logger.WithFields(logrus.Fields{
		"synced":  res.SyncedCount,
		"removed": res.RemovedCount,
	}).Info("assignments reconciled")
	return res, nil
}

// ResetAll sends every item back to a_faire and drops every assignment.
func (r *Reconciler) ResetAll(ctx context.Context) (ResetResult, error) {
	var res ResetResult

	modified, counts, err := r.dispatcher.Statuses().ResetAll(ctx)
	res.ProductionModifiedCount = modified
	if err != nil {
		return res, fmt.Errorf("reset production: %w", err)
	}
	res.StatusCounts = counts

	all, err := r.assignments.List(ctx)
	if err != nil {
		return res, err
	}
	for _, a := range all {
		if _, err := r.assignments.Delete(ctx, a.Key()); err != nil {
			return res, err
		}
		res.AssignmentsDeletedCount++
	}

	remaining, err := r.assignments.List(ctx)
	if err != nil {
		return res, err
	}
	res.RemainingAssignments = len(remaining)
	r.logger.WithFields(logrus.Fields{
		"modified": res.ProductionModifiedCount,
		"deleted":  res.AssignmentsDeletedCount,
	}).Warn("production reset")
	return res, nil
}
