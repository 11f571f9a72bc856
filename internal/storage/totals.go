package storage

import (
	"context"
	"fmt"

	"keuangan/internal/core"
	"keuangan/internal/log"
)

// Aggregator computes balance snapshots. Sums run in SQLite; the balance
// is derived here.
type Aggregator struct {
	db     *DB
	logger *log.Logger
}

func NewAggregator(db *DB, logger *log.Logger) *Aggregator {
	return &Aggregator{db: db, logger: logger.WithComponent(log.ComponentStorage)}
}

// Totals returns the snapshot over all entries matching f. The search
// term never applies to totals.
func (a *Aggregator) Totals(ctx context.Context, f core.Filter) (core.Balance, error) {
	var b core.Balance
	err := a.db.WithConn(ctx, func(q Querier) error {
		var err error
		b, err = sumBalance(ctx, q, BuildTotalsQuery(f))
		return err
	})
	if err != nil {
		a.logger.LogError(ctx, "Error fetching totals", err, log.OpTotals, nil)
		return core.Balance{}, err
	}
	return b, nil
}

// BalanceByType returns the snapshot of every entry of one type.
func (a *Aggregator) BalanceByType(ctx context.Context, typeRef int64) (core.Balance, error) {
	var b core.Balance
	err := a.db.WithConn(ctx, func(q Querier) error {
		var err error
		b, err = sumBalance(ctx, q, BuildBalanceByTypeQuery(typeRef))
		return err
	})
	if err != nil {
		a.logger.LogError(ctx, "Error fetching balance by type", err, log.OpBalance,
			log.NewFields().With(log.FieldTypeRef, typeRef))
		return core.Balance{}, err
	}
	return b, nil
}

func sumBalance(ctx context.Context, q Querier, query Query) (core.Balance, error) {
	var in, out int64
	if err := q.QueryRowContext(ctx, query.SQL, query.Args...).Scan(&in, &out); err != nil {
		return core.Balance{}, fmt.Errorf("sum entries: %w", err)
	}
	return core.NewBalance(core.Money{Cents: in}, core.Money{Cents: out}), nil
}
