package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"keuangan/internal/core"
	"keuangan/internal/log"
)

// TypeRepository manages the transaction type lookup table.
type TypeRepository struct {
	db     *DB
	logger *log.Logger
}

func NewTypeRepository(db *DB, logger *log.Logger) *TypeRepository {
	return &TypeRepository{db: db, logger: logger.WithComponent(log.ComponentType)}
}

// Create inserts a type and returns its id.
func (r *TypeRepository) Create(ctx context.Context, label string) (int64, error) {
	label, err := core.ValidateLabel(label)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.db.WithConn(ctx, func(q Querier) error {
		result, err := q.ExecContext(ctx, "INSERT INTO types (label) VALUES (?)", label)
		if err != nil {
			return fmt.Errorf("insert type: %w", err)
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		r.logger.LogError(ctx, "Error creating type", err, log.OpCreate, nil)
		return 0, err
	}
	return id, nil
}

// List returns every type ordered by id.
func (r *TypeRepository) List(ctx context.Context) ([]core.Type, error) {
	types := []core.Type{}
	err := r.db.WithConn(ctx, func(q Querier) error {
		rows, err := q.QueryContext(ctx, "SELECT id, label FROM types ORDER BY id")
		if err != nil {
			return fmt.Errorf("query types: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var t core.Type
			if err := rows.Scan(&t.ID, &t.Label); err != nil {
				return fmt.Errorf("scan type: %w", err)
			}
			types = append(types, t)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.LogError(ctx, "Error fetching type list", err, log.OpList, nil)
		return nil, err
	}
	return types, nil
}

// Get returns a type by id, or core.ErrNotFound.
func (r *TypeRepository) Get(ctx context.Context, id int64) (core.Type, error) {
	var t core.Type
	err := r.db.WithConn(ctx, func(q Querier) error {
		return q.QueryRowContext(ctx, "SELECT id, label FROM types WHERE id = ?", id).Scan(&t.ID, &t.Label)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Type{}, fmt.Errorf("type %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		r.logger.LogError(ctx, "Error fetching type", err, log.OpRead,
			log.NewFields().With(log.FieldTypeID, id))
		return core.Type{}, fmt.Errorf("get type: %w", err)
	}
	return t, nil
}

// Update relabels a type and returns the number of affected rows.
func (r *TypeRepository) Update(ctx context.Context, id int64, label string) (int64, error) {
	label, err := core.ValidateLabel(label)
	if err != nil {
		return 0, err
	}

	var affected int64
	err = r.db.WithConn(ctx, func(q Querier) error {
		result, err := q.ExecContext(ctx, "UPDATE types SET label = ? WHERE id = ?", label, id)
		if err != nil {
			return fmt.Errorf("update type: %w", err)
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		r.logger.LogError(ctx, "Error updating type", err, log.OpUpdate,
			log.NewFields().With(log.FieldTypeID, id))
		return 0, err
	}
	r.logger.DebugContext(ctx, "Type updated", log.FieldTypeID, id, log.FieldAffectedRows, affected)
	return affected, nil
}

// Remove deletes a type that no entry references. A referenced type is
// left in place and core.ErrTypeInUse is returned; a missing type yields
// 0 affected rows.
func (r *TypeRepository) Remove(ctx context.Context, id int64) (int64, error) {
	var affected int64
	err := r.db.WithConn(ctx, func(q Querier) error {
		result, err := q.ExecContext(ctx,
			`DELETE FROM types WHERE id = ? AND NOT EXISTS (SELECT 1 FROM entries WHERE type_ref = ?)`, id, id)
		if err != nil {
			return fmt.Errorf("delete type: %w", err)
		}
		if affected, err = result.RowsAffected(); err != nil {
			return err
		}
		if affected > 0 {
			return nil
		}

		var exists bool
		if err := q.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM types WHERE id = ?)", id).Scan(&exists); err != nil {
			return fmt.Errorf("check type: %w", err)
		}
		if exists {
			return fmt.Errorf("type %d: %w", id, core.ErrTypeInUse)
		}
		return nil
	})
	if errors.Is(err, core.ErrTypeInUse) {
		r.logger.WarnContext(ctx, "Type still referenced", log.FieldTypeID, id)
		return 0, err
	}
	if err != nil {
		r.logger.LogError(ctx, "Error deleting type", err, log.OpDelete,
			log.NewFields().With(log.FieldTypeID, id))
		return 0, err
	}
	r.logger.DebugContext(ctx, "Type removed", log.FieldTypeID, id, log.FieldAffectedRows, affected)
	return affected, nil
}
