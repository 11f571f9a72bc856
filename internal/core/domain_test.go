package core

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestListOptionsPaging(t *testing.T) {
	tests := []struct {
		name       string
		opts       ListOptions
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", ListOptions{}, 1, 20, 0},
		{"second page", ListOptions{Page: 2, Limit: 10}, 2, 10, 10},
		{"negative page behaves as first", ListOptions{Page: -3, Limit: 5}, 1, 5, 0},
		{"zero limit uses default", ListOptions{Page: 3}, 3, 20, 40},
		{"all disables offset", ListOptions{Page: 4, Limit: 10, All: true}, 4, 10, 0},
		{"huge page capped", ListOptions{Page: math.MaxInt, Limit: 1}, math.MaxInt, 1, math.MaxInt - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.opts.Normalize()
			if n.Page != tt.wantPage || n.Limit != tt.wantLimit {
				t.Errorf("Normalize() = page %d limit %d, want %d/%d", n.Page, n.Limit, tt.wantPage, tt.wantLimit)
			}
			if got := tt.opts.Offset(); got != tt.wantOffset {
				t.Errorf("Offset() = %d, want %d", got, tt.wantOffset)
			}
		})
	}
}

func TestOffsetNeverOverflows(t *testing.T) {
	for _, o := range []ListOptions{
		{Page: 1 << 62, Limit: 20},
		{Page: math.MaxInt, Limit: 100},
		{Page: math.MaxInt / 2, Limit: math.MaxInt},
	} {
		if got := o.Offset(); got < 0 {
			t.Errorf("page=%d limit=%d offset=%d, want non-negative", o.Page, o.Limit, got)
		}
	}
}

func TestOffsetFormula(t *testing.T) {
	for page := 1; page <= 5; page++ {
		for limit := 1; limit <= 50; limit += 7 {
			o := ListOptions{Page: page, Limit: limit}
			if got := o.Offset(); got != (page-1)*limit {
				t.Fatalf("page=%d limit=%d offset=%d", page, limit, got)
			}
		}
	}
}

func TestEntryInputValidate(t *testing.T) {
	typeRef := int64(1)
	good := EntryInput{AmountIn: Money{Cents: 100}, TypeRef: &typeRef}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	long := strings.Repeat("x", MaxNoteLength+1)
	bads := []EntryInput{
		{AmountIn: Money{Cents: -1}},
		{AmountOut: Money{Cents: -1}},
		{Note: &long},
	}
	for i, in := range bads {
		err := in.Validate()
		if !IsValidation(err) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestNeedsBalanceCheck(t *testing.T) {
	typeRef := int64(3)
	tests := []struct {
		name string
		in   EntryInput
		want bool
	}{
		{"outflow with type", EntryInput{AmountOut: Money{Cents: 1}, TypeRef: &typeRef}, true},
		{"zero outflow with type", EntryInput{AmountIn: Money{Cents: 500}, TypeRef: &typeRef}, false},
		{"outflow without type", EntryInput{AmountOut: Money{Cents: 1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.NeedsBalanceCheck(); got != tt.want {
				t.Errorf("NeedsBalanceCheck() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntryPatchEmpty(t *testing.T) {
	if !(EntryPatch{}).Empty() {
		t.Fatal("zero patch should be empty")
	}
	p := EntryPatch{Note: Set[*string](nil)}
	if p.Empty() {
		t.Fatal("patch clearing note should not be empty")
	}
}

func TestInsufficientFundsError(t *testing.T) {
	var err error = &InsufficientFundsError{TypeRef: 2, Balance: Money{Cents: 1000}, Requested: Money{Cents: 1500}}
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatal("expected errors.Is to match ErrInsufficientFunds")
	}
	if !strings.Contains(err.Error(), "balance 10") {
		t.Fatalf("unexpected message: %s", err)
	}
}

func TestValidateLabel(t *testing.T) {
	if got, err := ValidateLabel("  Kas  "); err != nil || got != "Kas" {
		t.Fatalf("expected trimmed label, got %q (err=%v)", got, err)
	}
	if _, err := ValidateLabel("   "); !IsValidation(err) {
		t.Fatalf("expected validation error for blank label, got %v", err)
	}
	if _, err := ValidateLabel(strings.Repeat("a", MaxLabelLength+1)); !IsValidation(err) {
		t.Fatalf("expected validation error for long label, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-09")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !d.Equal(NewDate(2025, 3, 9).Time) {
		t.Fatalf("unexpected date %v", d)
	}
	if _, err := ParseDate("09/03/2025"); err == nil {
		t.Fatal("expected error for non ISO date")
	}
}
