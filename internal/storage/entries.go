package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"keuangan/internal/core"
	"keuangan/internal/log"
)

// CreateResult reports the outcome of an insert.
type CreateResult struct {
	InsertID     int64
	AffectedRows int64
}

// EntryRepository reads and writes accounting entries.
type EntryRepository struct {
	db     *DB
	agg    *Aggregator
	logger *log.Logger
	now    func() time.Time
}

func NewEntryRepository(db *DB, logger *log.Logger) *EntryRepository {
	return &EntryRepository{
		db:     db,
		agg:    NewAggregator(db, logger),
		logger: logger.WithComponent(log.ComponentEntry),
		now:    time.Now,
	}
}

// List returns the entries matching opts, newest first.
func (r *EntryRepository) List(ctx context.Context, opts core.ListOptions) ([]core.Entry, error) {
	query := BuildListQuery(opts)
	var entries []core.Entry
	err := r.db.WithConn(ctx, func(q Querier) error {
		rows, err := q.QueryContext(ctx, query.SQL, query.Args...)
		if err != nil {
			return fmt.Errorf("query entries: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.LogError(ctx, "Error fetching entry list", err, log.OpList, nil)
		return nil, err
	}
	if entries == nil {
		entries = []core.Entry{}
	}
	return entries, nil
}

// Get returns one entry with its type label, or core.ErrNotFound.
func (r *EntryRepository) Get(ctx context.Context, id int64) (core.Entry, error) {
	query := BuildGetQuery(id)
	var e core.Entry
	err := r.db.WithConn(ctx, func(q Querier) error {
		var err error
		e, err = scanEntry(q.QueryRowContext(ctx, query.SQL, query.Args...))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, fmt.Errorf("entry %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		r.logger.LogError(ctx, "Error fetching entry", err, log.OpRead,
			log.NewFields().With(log.FieldEntryID, id))
		return core.Entry{}, err
	}
	return e, nil
}

// Create inserts a new entry. An outflow against a type is rejected with
// *core.InsufficientFundsError when it exceeds that type's balance; the
// check and the insert are a single statement so concurrent outflows
// cannot overdraw the type.
func (r *EntryRepository) Create(ctx context.Context, in core.EntryInput) (CreateResult, error) {
	if err := in.Validate(); err != nil {
		return CreateResult{}, err
	}
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	var res CreateResult
	err := r.db.WithConn(ctx, func(q Querier) error {
		query := BuildInsertQuery(in, createdAt)
		if in.NeedsBalanceCheck() {
			bal, err := sumBalance(ctx, q, BuildBalanceByTypeQuery(*in.TypeRef))
			if err != nil {
				return err
			}
			if bal.Balance.Cents < in.AmountOut.Cents {
				return &core.InsufficientFundsError{TypeRef: *in.TypeRef, Balance: bal.Balance, Requested: in.AmountOut}
			}
			query = BuildGuardedInsertQuery(in, createdAt)
		}

		result, err := q.ExecContext(ctx, query.SQL, query.Args...)
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		if affected == 0 && in.NeedsBalanceCheck() {
			bal, err := sumBalance(ctx, q, BuildBalanceByTypeQuery(*in.TypeRef))
			if err != nil {
				return err
			}
			return &core.InsufficientFundsError{TypeRef: *in.TypeRef, Balance: bal.Balance, Requested: in.AmountOut}
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		res = CreateResult{InsertID: id, AffectedRows: affected}
		return nil
	})

	fields := log.NewFields().WithEntry(0, in.AmountIn.Cents, in.AmountOut.Cents, in.TypeRef)
	switch {
	case errors.Is(err, core.ErrInsufficientFunds):
		r.logger.WarnContext(ctx, "Outflow rejected", append(fields.ToSlice(), log.FieldError, err.Error())...)
		return CreateResult{}, err
	case err != nil:
		r.logger.LogError(ctx, "Error creating entry", err, log.OpCreate, fields)
		return CreateResult{}, err
	}

	r.logger.DebugContext(ctx, "Entry created", fields.With(log.FieldEntryID, res.InsertID).ToSlice()...)
	return res, nil
}

// Update writes the fields set in p and returns the number of affected
// rows. An empty patch writes nothing and returns 0. The balance rule is
// not re-checked on update.
func (r *EntryRepository) Update(ctx context.Context, id int64, p core.EntryPatch) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	query, ok := BuildUpdateQuery(id, p)
	if !ok {
		return 0, nil
	}

	affected, err := r.exec(ctx, query)
	if err != nil {
		r.logger.LogError(ctx, "Error updating entry", err, log.OpUpdate,
			log.NewFields().With(log.FieldEntryID, id))
		return 0, err
	}
	r.logger.DebugContext(ctx, "Entry updated", log.FieldEntryID, id, log.FieldAffectedRows, affected)
	return affected, nil
}

// Remove hard-deletes an entry and returns the number of affected rows.
func (r *EntryRepository) Remove(ctx context.Context, id int64) (int64, error) {
	affected, err := r.exec(ctx, Query{SQL: "DELETE FROM entries WHERE id = ?", Args: []any{id}})
	if err != nil {
		r.logger.LogError(ctx, "Error deleting entry", err, log.OpDelete,
			log.NewFields().With(log.FieldEntryID, id))
		return 0, err
	}
	r.logger.DebugContext(ctx, "Entry removed", log.FieldEntryID, id, log.FieldAffectedRows, affected)
	return affected, nil
}

// Totals returns the balance snapshot over the filtered entries.
func (r *EntryRepository) Totals(ctx context.Context, f core.Filter) (core.Balance, error) {
	return r.agg.Totals(ctx, f)
}

// TotalsByType returns the balance snapshot of one type.
func (r *EntryRepository) TotalsByType(ctx context.Context, typeRef int64) (core.Balance, error) {
	return r.agg.BalanceByType(ctx, typeRef)
}

func (r *EntryRepository) exec(ctx context.Context, query Query) (int64, error) {
	var affected int64
	err := r.db.WithConn(ctx, func(q Querier) error {
		result, err := q.ExecContext(ctx, query.SQL, query.Args...)
		if err != nil {
			return fmt.Errorf("exec: %w", err)
		}
		affected, err = result.RowsAffected()
		return err
	})
	return affected, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (core.Entry, error) {
	var (
		e               core.Entry
		in, out         int64
		dateIn, dateOut sql.NullString
		typeRef         sql.NullInt64
		typeLabel, note sql.NullString
		createdAt       string
	)
	if err := row.Scan(&e.ID, &in, &out, &dateIn, &dateOut, &typeRef, &typeLabel, &note, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Entry{}, err
		}
		return core.Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	e.AmountIn = core.Money{Cents: in}
	e.AmountOut = core.Money{Cents: out}
	var err error
	if e.DateIn, err = parseNullDate(dateIn); err != nil {
		return core.Entry{}, fmt.Errorf("scan entry %d date_in: %w", e.ID, err)
	}
	if e.DateOut, err = parseNullDate(dateOut); err != nil {
		return core.Entry{}, fmt.Errorf("scan entry %d date_out: %w", e.ID, err)
	}
	if typeRef.Valid {
		v := typeRef.Int64
		e.TypeRef = &v
	}
	if typeLabel.Valid {
		v := typeLabel.String
		e.TypeLabel = &v
	}
	if note.Valid {
		v := note.String
		e.Note = &v
	}
	if e.CreatedAt, err = time.ParseInLocation(timestampLayout, createdAt, time.UTC); err != nil {
		return core.Entry{}, fmt.Errorf("scan entry %d created_at: %w", e.ID, err)
	}
	return e, nil
}

func parseNullDate(ns sql.NullString) (*core.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := core.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
