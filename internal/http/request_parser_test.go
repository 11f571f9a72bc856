package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"keuangan/internal/core"
)

func TestParseListOptions(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
		wantAll   bool
		wantErr   bool
	}{
		{"defaults", "", 1, 20, false, false},
		{"explicit", "page=3&limit=5", 3, 5, false, false},
		{"non-positive page", "page=0&limit=-1", 1, 20, false, false},
		{"non-numeric limit", "limit=ten", 1, 20, false, false},
		{"all", "limit=ALL&page=4", 4, 0, true, false},
		{"bad tipe", "tipe=1a", 0, 0, false, true},
		{"bad date", "endDate=2024-02-30", 0, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			opts, err := ParseListOptions(q)
			if tt.wantErr {
				if !core.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if opts.Page != tt.wantPage || opts.All != tt.wantAll {
				t.Fatalf("opts = %+v", opts)
			}
			if !tt.wantAll && opts.Limit != tt.wantLimit {
				t.Fatalf("limit = %d, want %d", opts.Limit, tt.wantLimit)
			}
		})
	}
}

func TestParseFilter(t *testing.T) {
	q, _ := url.ParseQuery("tipe=7&startDate=2024-01-01&endDate=2024-01-31&search=ignored")
	f, err := ParseFilter(q)
	if err != nil {
		t.Fatal(err)
	}
	if f.TypeRef == nil || *f.TypeRef != 7 || f.StartDate.String() != "2024-01-01" || f.EndDate.String() != "2024-01-31" {
		t.Fatalf("filter = %+v", f)
	}

	f, err = ParseFilter(url.Values{})
	if err != nil || f.TypeRef != nil || f.StartDate != nil || f.EndDate != nil {
		t.Fatalf("empty filter = %+v, %v", f, err)
	}
}

func newParser(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return p
}

func TestParseEntryInput(t *testing.T) {
	p := newParser(t, "application/json",
		`{"amount_in": "12,50", "amount_out": null, "type_ref": 3, "date_in": "2024-05-01", "note": "  lunch\u0007 "}`)
	in, err := ParseEntryInput(p)
	if err != nil {
		t.Fatal(err)
	}
	if in.AmountIn.Cents != 1250 || in.AmountOut.Cents != 0 {
		t.Fatalf("amounts = %v / %v", in.AmountIn, in.AmountOut)
	}
	if in.TypeRef == nil || *in.TypeRef != 3 || in.DateIn.String() != "2024-05-01" || in.DateOut != nil {
		t.Fatalf("input = %+v", in)
	}
	if in.Note == nil || *in.Note != "lunch" {
		t.Fatalf("note = %v", in.Note)
	}

	p = newParser(t, "application/x-www-form-urlencoded", "amount_out=5&type_ref=&created_at=2024-01-02T03:04:05Z")
	in, err = ParseEntryInput(p)
	if err != nil {
		t.Fatal(err)
	}
	if in.AmountOut.Cents != 500 || in.TypeRef != nil || in.Note != nil || in.CreatedAt.IsZero() {
		t.Fatalf("form input = %+v", in)
	}
}

func TestParseEntryNoteBlankIsNull(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"json empty", "application/json", `{"amount_in": 1, "note": ""}`},
		{"json whitespace", "application/json", `{"amount_in": 1, "note": "   "}`},
		{"form empty", "application/x-www-form-urlencoded", "amount_in=1&note="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ParseEntryInput(newParser(t, tt.contentType, tt.body))
			if err != nil {
				t.Fatal(err)
			}
			if in.Note != nil {
				t.Fatalf("create note = %q, want nil", *in.Note)
			}

			patch, err := ParseEntryPatch(newParser(t, tt.contentType, tt.body))
			if err != nil {
				t.Fatal(err)
			}
			if !patch.Note.Set || patch.Note.Value != nil {
				t.Fatalf("patch note = %+v, want set to nil", patch.Note)
			}
		})
	}
}

func TestParseEntryPatch(t *testing.T) {
	p := newParser(t, "application/json", `{"amount_in": null, "note": null, "type_ref": 2, "other": true}`)
	patch, err := ParseEntryPatch(p)
	if err != nil {
		t.Fatal(err)
	}
	if !patch.AmountIn.Set || patch.AmountIn.Value.Cents != 0 {
		t.Fatalf("amount_in = %+v", patch.AmountIn)
	}
	if !patch.Note.Set || patch.Note.Value != nil {
		t.Fatalf("note = %+v", patch.Note)
	}
	if !patch.TypeRef.Set || *patch.TypeRef.Value != 2 {
		t.Fatalf("type_ref = %+v", patch.TypeRef)
	}
	if patch.AmountOut.Set || patch.DateIn.Set || patch.DateOut.Set {
		t.Fatalf("unexpected fields set: %+v", patch)
	}

	p = newParser(t, "application/json", `{"foo": 1}`)
	patch, err = ParseEntryPatch(p)
	if err != nil || !patch.Empty() {
		t.Fatalf("expected empty patch, got %+v %v", patch, err)
	}
}

func TestParseID(t *testing.T) {
	tests := map[string]bool{"1": true, "42": true, "0": false, "-1": false, "x": false, "": false}
	for raw, ok := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.SetPathValue("id", raw)
		id, err := ParseID(req, "id")
		if ok && (err != nil || id <= 0) {
			t.Errorf("ParseID(%q) = %d, %v", raw, id, err)
		}
		if !ok && err == nil {
			t.Errorf("ParseID(%q) should fail", raw)
		}
	}
}
