package storage

import (
	"strings"
	"time"

	"keuangan/internal/core"
)

// Query is parameterized SQL text plus its positional arguments. User input
// only ever travels in Args.
type Query struct {
	SQL  string
	Args []any
}

const (
	entryColumns = `e.id, e.amount_in, e.amount_out, e.date_in, e.date_out, e.type_ref, t.label, e.note, e.created_at`
	entrySource  = `entries e LEFT JOIN types t ON t.id = e.type_ref`
	entryOrder   = ` ORDER BY e.created_at DESC, e.id DESC`

	totalsSelect = `SELECT COALESCE(SUM(e.amount_in), 0), COALESCE(SUM(e.amount_out), 0) FROM entries e`
)

type whereClause struct {
	conds []string
	args  []any
}

func (w *whereClause) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// filterWhere translates a filter into AND-combined conditions. A date
// bound matches when either date_in or date_out satisfies it, so an entry
// with both dates NULL never matches a date filter.
func filterWhere(f core.Filter) *whereClause {
	w := &whereClause{}
	if f.TypeRef != nil {
		w.add("e.type_ref = ?", *f.TypeRef)
	}
	if f.StartDate != nil {
		d := f.StartDate.String()
		w.add("(e.date_in >= ? OR e.date_out >= ?)", d, d)
	}
	if f.EndDate != nil {
		d := f.EndDate.String()
		w.add("(e.date_in <= ? OR e.date_out <= ?)", d, d)
	}
	return w
}

// BuildListQuery returns the entry listing query: filters, optional
// case-insensitive note search, newest first, and LIMIT/OFFSET unless opts.All is set.
func BuildListQuery(opts core.ListOptions) Query {
	w := filterWhere(opts.Filter)
	if s := strings.TrimSpace(opts.Search); s != "" {
		w.add(foldFunc+`(e.note) LIKE ? ESCAPE '\'`, "%"+escapeLike(foldCase(s))+"%")
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(entryColumns)
	b.WriteString(" FROM ")
	b.WriteString(entrySource)
	b.WriteString(w.String())
	b.WriteString(entryOrder)

	args := w.args
	if !opts.All {
		n := opts.Normalize()
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, n.Limit, n.Offset())
	}
	return Query{SQL: b.String(), Args: args}
}

// BuildGetQuery selects a single entry with its type label.
func BuildGetQuery(id int64) Query {
	return Query{
		SQL:  "SELECT " + entryColumns + " FROM " + entrySource + " WHERE e.id = ?",
		Args: []any{id},
	}
}

// BuildTotalsQuery sums both amount columns over the filtered entries.
func BuildTotalsQuery(f core.Filter) Query {
	w := filterWhere(f)
	return Query{SQL: totalsSelect + w.String(), Args: w.args}
}

// BuildBalanceByTypeQuery sums entries of one type, ignoring date filters.
func BuildBalanceByTypeQuery(typeRef int64) Query {
	return BuildTotalsQuery(core.Filter{TypeRef: &typeRef})
}

const insertColumns = `INSERT INTO entries (amount_in, amount_out, date_in, date_out, type_ref, note, created_at)`

func insertArgs(in core.EntryInput, createdAt time.Time) []any {
	return []any{
		in.AmountIn.Cents,
		in.AmountOut.Cents,
		nullableDate(in.DateIn),
		nullableDate(in.DateOut),
		nullableInt(in.TypeRef),
		nullableString(in.Note),
		createdAt.UTC().Format(timestampLayout),
	}
}

// BuildInsertQuery is the plain insert used when no balance guard applies.
func BuildInsertQuery(in core.EntryInput, createdAt time.Time) Query {
	return Query{
		SQL:  insertColumns + ` VALUES (?, ?, ?, ?, ?, ?, ?)`,
		Args: insertArgs(in, createdAt),
	}
}

// BuildGuardedInsertQuery inserts the entry only if the type balance still
// covers the outflow when the statement runs. Zero affected rows means the
// guard rejected it.
func BuildGuardedInsertQuery(in core.EntryInput, createdAt time.Time) Query {
	args := insertArgs(in, createdAt)
	args = append(args, nullableInt(in.TypeRef), in.AmountOut.Cents)
	return Query{
		SQL: insertColumns + ` SELECT ?, ?, ?, ?, ?, ?, ?` +
			` WHERE (SELECT COALESCE(SUM(amount_in), 0) - COALESCE(SUM(amount_out), 0)` +
			` FROM entries WHERE type_ref = ?) >= ?`,
		Args: args,
	}
}

// BuildUpdateQuery builds an UPDATE for the set fields of p, in a fixed
// column order. It reports false when p sets nothing.
func BuildUpdateQuery(id int64, p core.EntryPatch) (Query, bool) {
	var sets []string
	var args []any
	if p.AmountIn.Set {
		sets = append(sets, "amount_in = ?")
		args = append(args, p.AmountIn.Value.Cents)
	}
	if p.AmountOut.Set {
		sets = append(sets, "amount_out = ?")
		args = append(args, p.AmountOut.Value.Cents)
	}
	if p.DateIn.Set {
		sets = append(sets, "date_in = ?")
		args = append(args, nullableDate(p.DateIn.Value))
	}
	if p.DateOut.Set {
		sets = append(sets, "date_out = ?")
		args = append(args, nullableDate(p.DateOut.Value))
	}
	if p.TypeRef.Set {
		sets = append(sets, "type_ref = ?")
		args = append(args, nullableInt(p.TypeRef.Value))
	}
	if p.Note.Set {
		sets = append(sets, "note = ?")
		args = append(args, nullableString(p.Note.Value))
	}
	if len(sets) == 0 {
		return Query{}, false
	}
	args = append(args, id)
	return Query{
		SQL:  "UPDATE entries SET " + strings.Join(sets, ", ") + " WHERE id = ?",
		Args: args,
	}, true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in s match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullableDate(d *core.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
