package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/xid"

	"github.com/sakif/skillswap/internal/apperror"
	"github.com/sakif/skillswap/internal/model"
	"github.com/sakif/skillswap/internal/repository"
)

// compile-time check that *DB implements repository.RequestRepository
var _ repository.RequestRepository = (*DB)(nil)

// requestSelect joins every request with its skill (for the name and the
// owner) and its requester (for the display name).
func requestSelect() sq.SelectBuilder {
	return sq.Select(
		"r.id", "r.skill_id", "s.name AS skill_name", "s.owner_id",
		"r.requester_id", "u.name AS requester_name",
		"r.message", "r.status", "r.created_at", "r.updated_at",
	).
		From("requests r").
		Join("skills s ON s.id = r.skill_id").
		Join("users u ON u.id = r.requester_id").
		OrderBy("r.created_at DESC", "r.id DESC")
}

// CreateRequest inserts a pending request. The status is always pending
// regardless of what the caller set.
func (db *DB) CreateRequest(ctx context.Context, req *model.Request) error {
	return db.observe(ctx, "requests.create", func(ctx context.Context) error {
		now := time.Now().UTC()
		req.ID = xid.New().String()
		req.Status = model.StatusPending
		req.CreatedAt = now
		req.UpdatedAt = now

		query, args, err := sq.Insert("requests").
			Columns("id", "skill_id", "requester_id", "message", "status", "created_at", "updated_at").
			Values(req.ID, req.SkillID, req.RequesterID, req.Message, req.Status, req.CreatedAt, req.UpdatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("sqlite: building request insert: %w", err)
		}

		if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
			if isForeignKeyViolation(err) {
				return apperror.NotFound("skill", req.SkillID)
			}
			return fmt.Errorf("sqlite: creating request: %w", err)
		}
		return nil
	})
}

// GetRequestByID retrieves a request together with its skill owner.
func (db *DB) GetRequestByID(ctx context.Context, id string) (*model.Request, error) {
	var req model.Request
	err := db.observe(ctx, "requests.get_by_id", func(ctx context.Context) error {
		query, args, err := requestSelect().Where(sq.Eq{"r.id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("sqlite: building request query: %w", err)
		}
		err = db.conn.GetContext(ctx, &req, query, args...)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("request", id)
		}
		if err != nil {
			return fmt.Errorf("sqlite: getting request %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListRequestsByOwner returns requests made on skills owned by ownerID.
func (db *DB) ListRequestsByOwner(ctx context.Context, ownerID string) ([]model.Request, error) {
	return db.listRequests(ctx, "requests.list_received", requestSelect().Where(sq.Eq{"s.owner_id": ownerID}))
}

// ListRequestsByRequester returns requests sent by requesterID.
func (db *DB) ListRequestsByRequester(ctx context.Context, requesterID string) ([]model.Request, error) {
	return db.listRequests(ctx, "requests.list_sent", requestSelect().Where(sq.Eq{"r.requester_id": requesterID}))
}

// ListRequests returns every request. Admin only.
func (db *DB) ListRequests(ctx context.Context) ([]model.Request, error) {
	return db.listRequests(ctx, "requests.list", requestSelect())
}

func (db *DB) listRequests(ctx context.Context, operation string, builder sq.SelectBuilder) ([]model.Request, error) {
	requests := []model.Request{}
	err := db.observe(ctx, operation, func(ctx context.Context) error {
		query, args, err := builder.ToSql()
		if err != nil {
			return fmt.Errorf("sqlite: building request list query: %w", err)
		}
		if err := db.conn.SelectContext(ctx, &requests, query, args...); err != nil {
			return fmt.Errorf("sqlite: listing requests: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// TransitionRequest moves a pending request to status `to`.
//
// COMPARE-AND-SET:
// The WHERE clause carries the precondition ("status is still pending"), so
// the check and the write are one atomic statement. If two owners' clicks
// race, the first UPDATE flips the row and the second matches zero rows.
// The boolean reports whether this call won; it is false both when the
// request is gone and when it was already decided, and the service tells
// those apart with a follow-up read.
func (db *DB) TransitionRequest(ctx context.Context, id string, to model.Status) (bool, error) {
	var changed bool
	err := db.observe(ctx, "requests.transition", func(ctx context.Context) error {
		result, err := db.conn.ExecContext(ctx,
			`UPDATE requests SET status = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			to, time.Now().UTC(), id, model.StatusPending,
		)
		if err != nil {
			return fmt.Errorf("sqlite: transitioning request %s to %s: %w", id, to, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		changed = n == 1
		return nil
	})
	return changed, err
}

// DeletePendingRequest removes a request only while it is still pending.
// Same compare-and-set contract as TransitionRequest.
func (db *DB) DeletePendingRequest(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := db.observe(ctx, "requests.delete_pending", func(ctx context.Context) error {
		result, err := db.conn.ExecContext(ctx,
			`DELETE FROM requests WHERE id = ? AND status = ?`, id, model.StatusPending)
		if err != nil {
			return fmt.Errorf("sqlite: deleting pending request %s: %w", id, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		deleted = n == 1
		return nil
	})
	return deleted, err
}

// DeleteRequest removes a request whatever its status. Admin moderation only.
func (db *DB) DeleteRequest(ctx context.Context, id string) error {
	return db.observe(ctx, "requests.delete", func(ctx context.Context) error {
		result, err := db.conn.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting request %s: %w", id, err)
		}
		return expectOneRow(result, "request", id)
	})
}
