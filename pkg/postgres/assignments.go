package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/volts/pkg/db"
)

const assignmentColumns = `id, user_id, shift_position_id, status, notes, applied_at, confirmed_at, rejected_at, created_at, updated_at`

func scanAssignment(row pgx.Row) (db.Assignment, error) {
	var a db.Assignment
	err := row.Scan(&a.ID, &a.UserID, &a.ShiftPositionID, &a.Status, &a.Notes, &a.AppliedAt,
		&a.ConfirmedAt, &a.RejectedAt, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// GetAssignment retrieves an assignment by id
func (q *queries) GetAssignment(ctx context.Context, id string) (*db.Assignment, error) {
	a, err := scanAssignment(q.conn.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "get assignment %s", id)
	}
	return &a, nil
}

// LockAssignment retrieves an assignment and row-locks it for the rest of the transaction
func (q *queries) LockAssignment(ctx context.Context, id string) (*db.Assignment, error) {
	a, err := scanAssignment(q.conn.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapErr(err, "lock assignment %s", id)
	}
	return &a, nil
}

// GetAssignmentForUser retrieves the user's assignment on a slot, in any status
func (q *queries) GetAssignmentForUser(ctx context.Context, userID, shiftPositionID string) (*db.Assignment, error) {
	a, err := scanAssignment(q.conn.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments
		WHERE user_id = $1 AND shift_position_id = $2
	`, userID, shiftPositionID))
	if err != nil {
		return nil, mapErr(err, "get assignment of %s on %s", userID, shiftPositionID)
	}
	return &a, nil
}

// ListAssignments returns the slot's assignments in application order
func (q *queries) ListAssignments(ctx context.Context, shiftPositionID string) ([]db.Assignment, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments
		WHERE shift_position_id = $1
		ORDER BY applied_at, id
	`, shiftPositionID)
	if err != nil {
		return nil, mapErr(err, "query assignments of %s", shiftPositionID)
	}
	assignments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.Assignment, error) {
		return scanAssignment(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan assignments: %w", err)
	}
	return assignments, nil
}

// CountAssignments counts the slot's assignments in any of statuses, or all of them
func (q *queries) CountAssignments(ctx context.Context, shiftPositionID string, statuses ...db.AssignmentStatus) (int, error) {
	var count int
	var err error
	if len(statuses) == 0 {
		err = q.conn.QueryRow(ctx, `
			SELECT COUNT(*) FROM assignments WHERE shift_position_id = $1
		`, shiftPositionID).Scan(&count)
	} else {
		names := make([]string, len(statuses))
		for i, s := range statuses {
			names[i] = string(s)
		}
		err = q.conn.QueryRow(ctx, `
			SELECT COUNT(*) FROM assignments WHERE shift_position_id = $1 AND status = ANY($2)
		`, shiftPositionID, names).Scan(&count)
	}
	if err != nil {
		return 0, mapErr(err, "count assignments of %s", shiftPositionID)
	}
	return count, nil
}

// InsertAssignment inserts an assignment
func (q *queries) InsertAssignment(ctx context.Context, a *db.Assignment) error {
	_, err := q.conn.Exec(ctx, `
		INSERT INTO assignments (`+assignmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, a.ID, a.UserID, a.ShiftPositionID, string(a.Status), a.Notes, a.AppliedAt,
		a.ConfirmedAt, a.RejectedAt, a.CreatedAt, a.UpdatedAt)
	return mapErr(err, "insert assignment of %s on %s", a.UserID, a.ShiftPositionID)
}

// UpdateAssignment overwrites the assignment's lifecycle fields
func (q *queries) UpdateAssignment(ctx context.Context, a *db.Assignment) error {
	return q.execOne(ctx, "update assignment "+a.ID, `
		UPDATE assignments
		SET status = $2, notes = $3, confirmed_at = $4, rejected_at = $5, updated_at = $6
		WHERE id = $1
	`, a.ID, string(a.Status), a.Notes, a.ConfirmedAt, a.RejectedAt, a.UpdatedAt)
}

// DeleteAssignment removes an assignment
func (q *queries) DeleteAssignment(ctx context.Context, id string) error {
	return q.execOne(ctx, "delete assignment "+id, `DELETE FROM assignments WHERE id = $1`, id)
}
