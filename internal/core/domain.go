package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

const (
	DefaultPage  = 1
	DefaultLimit = 20

	MaxNoteLength  = 500
	MaxLabelLength = 100
)

type (
	// Date is a calendar date without time of day.
	Date struct {
		time.Time
	}

	// Entry is one accounting record. TypeLabel is filled by the lookup join
	// and is nil when the entry has no type or the type no longer exists.
	Entry struct {
		ID        int64     `json:"id"`
		AmountIn  Money     `json:"amount_in"`
		AmountOut Money     `json:"amount_out"`
		DateIn    *Date     `json:"date_in"`
		DateOut   *Date     `json:"date_out"`
		TypeRef   *int64    `json:"type_ref"`
		TypeLabel *string   `json:"type_label"`
		Note      *string   `json:"note"`
		CreatedAt time.Time `json:"created_at"`
	}

	// EntryInput holds normalized fields for a new entry.
	EntryInput struct {
		AmountIn  Money
		AmountOut Money
		DateIn    *Date
		DateOut   *Date
		TypeRef   *int64
		Note      *string
		CreatedAt time.Time // zero means now
	}

	// Field marks a value as explicitly supplied in a partial update.
	Field[T any] struct {
		Set   bool
		Value T
	}

	// EntryPatch lists the updatable entry columns. Only fields with Set
	// are written.
	EntryPatch struct {
		AmountIn  Field[Money]
		AmountOut Field[Money]
		DateIn    Field[*Date]
		DateOut   Field[*Date]
		TypeRef   Field[*int64]
		Note      Field[*string]
	}

	// Type is a transaction type label.
	Type struct {
		ID    int64  `json:"id"`
		Label string `json:"label"`
	}

	// Balance is a derived snapshot; Balance may be negative.
	Balance struct {
		TotalIn  Money `json:"total_in"`
		TotalOut Money `json:"total_out"`
		Balance  Money `json:"balance"`
	}

	// Filter narrows entries for listing and aggregation. Nil fields are
	// not applied; present fields are AND-combined.
	Filter struct {
		TypeRef   *int64
		StartDate *Date
		EndDate   *Date
	}

	// ListOptions configures a list or export query.
	ListOptions struct {
		Filter
		Page   int
		Limit  int
		All    bool // disables LIMIT/OFFSET
		Search string
	}
)

// Set returns a Field holding v.
func Set[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDate(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Normalize applies paging defaults: page <= 0 becomes 1 and limit <= 0
// becomes DefaultLimit. Page is capped so that Offset cannot overflow.
func (o ListOptions) Normalize() ListOptions {
	if o.Page <= 0 {
		o.Page = DefaultPage
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if maxPage := math.MaxInt / o.Limit; o.Page > maxPage {
		o.Page = maxPage
	}
	return o
}

// Offset returns the row offset for the current page, or 0 when paging
// is disabled.
func (o ListOptions) Offset() int {
	if o.All {
		return 0
	}
	n := o.Normalize()
	return (n.Page - 1) * n.Limit
}

// Validate checks the amount invariants.
func (in EntryInput) Validate() error {
	if err := in.AmountIn.Validate(); err != nil {
		return &ValidationError{Field: "amount_in", Err: err}
	}
	if err := in.AmountOut.Validate(); err != nil {
		return &ValidationError{Field: "amount_out", Err: err}
	}
	if in.Note != nil && len(*in.Note) > MaxNoteLength {
		return &ValidationError{Field: "note", Err: errors.New("note too long (max 500 characters)")}
	}
	return nil
}

// NeedsBalanceCheck reports whether creating this entry must first verify
// the type balance.
func (in EntryInput) NeedsBalanceCheck() bool {
	return in.AmountOut.Cents > 0 && in.TypeRef != nil
}

// Empty reports whether the patch changes nothing.
func (p EntryPatch) Empty() bool {
	return !p.AmountIn.Set && !p.AmountOut.Set && !p.DateIn.Set &&
		!p.DateOut.Set && !p.TypeRef.Set && !p.Note.Set
}

func (p EntryPatch) Validate() error {
	if p.AmountIn.Set {
		if err := p.AmountIn.Value.Validate(); err != nil {
			return &ValidationError{Field: "amount_in", Err: err}
		}
	}
	if p.AmountOut.Set {
		if err := p.AmountOut.Value.Validate(); err != nil {
			return &ValidationError{Field: "amount_out", Err: err}
		}
	}
	if p.Note.Set && p.Note.Value != nil && len(*p.Note.Value) > MaxNoteLength {
		return &ValidationError{Field: "note", Err: errors.New("note too long (max 500 characters)")}
	}
	return nil
}

// NewBalance builds a snapshot from the two sums.
func NewBalance(in, out Money) Balance {
	return Balance{TotalIn: in, TotalOut: out, Balance: in.Sub(out)}
}

// ValidateLabel trims and checks a type label.
func ValidateLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", &ValidationError{Field: "label", Err: errors.New("empty label")}
	}
	if len(label) > MaxLabelLength {
		return "", &ValidationError{Field: "label", Err: errors.New("label too long (max 100 characters)")}
	}
	return label, nil
}
