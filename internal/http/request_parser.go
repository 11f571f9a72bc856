package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"keuangan/internal/core"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("query"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// filterParams are the raw query parameters shared by list, totals and
// export.
type filterParams struct {
	Tipe      string `query:"tipe" validate:"omitempty,number,max=18"`
	StartDate string `query:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"endDate" validate:"omitempty,datetime=2006-01-02"`
	Search    string `query:"search" validate:"max=200"`
}

func readFilterParams(q url.Values) filterParams {
	return filterParams{
		Tipe:      strings.TrimSpace(q.Get("tipe")),
		StartDate: strings.TrimSpace(q.Get("startDate")),
		EndDate:   strings.TrimSpace(q.Get("endDate")),
		Search:    sanitizeInput(q.Get("search")),
	}
}

// ParseFilter validates tipe/startDate/endDate. Absent parameters are not
// applied; malformed ones are rejected.
func ParseFilter(q url.Values) (core.Filter, error) {
	p := readFilterParams(q)
	if err := validateStruct(p); err != nil {
		return core.Filter{}, err
	}
	return p.filter()
}

func (p filterParams) filter() (core.Filter, error) {
	var f core.Filter
	if p.Tipe != "" {
		id, err := strconv.ParseInt(p.Tipe, 10, 64)
		if err != nil {
			return f, &core.ValidationError{Field: "tipe", Err: err}
		}
		f.TypeRef = &id
	}
	if p.StartDate != "" {
		d, err := core.ParseDate(p.StartDate)
		if err != nil {
			return f, &core.ValidationError{Field: "startDate", Err: err}
		}
		f.StartDate = &d
	}
	if p.EndDate != "" {
		d, err := core.ParseDate(p.EndDate)
		if err != nil {
			return f, &core.ValidationError{Field: "endDate", Err: err}
		}
		f.EndDate = &d
	}
	return f, nil
}

// ParseListOptions reads the list/export query. page and limit are
// lenient: anything unparsable falls back to the defaults, and
// limit=all (any case) disables paging.
func ParseListOptions(q url.Values) (core.ListOptions, error) {
	p := readFilterParams(q)
	if err := validateStruct(p); err != nil {
		return core.ListOptions{}, err
	}
	f, err := p.filter()
	if err != nil {
		return core.ListOptions{}, err
	}

	opts := core.ListOptions{
		Filter: f,
		Page:   atoiOrZero(q.Get("page")),
		Search: p.Search,
	}
	if limit := strings.TrimSpace(q.Get("limit")); strings.EqualFold(limit, "all") {
		opts.All = true
	} else {
		opts.Limit = atoiOrZero(limit)
	}
	return opts.Normalize(), nil
}

// ParseID reads a positive integer path value.
func ParseID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	if err := validate.Var(raw, "required,number,max=18"); err != nil {
		return 0, &core.ValidationError{Field: name, Err: fmt.Errorf("must be a positive integer")}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Field: name, Err: fmt.Errorf("must be a positive integer")}
	}
	return id, nil
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &core.ValidationError{Field: fe.Field(), Err: fmt.Errorf("failed %q check", fe.Tag())}
	}
	return err
}

// RequestBodyParser reads a JSON or form-encoded body once and exposes
// its fields by key, distinguishing absent, null and present values.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = &core.ValidationError{Field: "body", Err: fmt.Errorf("malformed JSON: %w", err)}
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	if p.err != nil {
		p.err = &core.ValidationError{Field: "body", Err: p.err}
	}
	return p.err
}

// Has reports whether key was supplied at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	_, ok := p.formData[key]
	return ok
}

// IsNull reports whether key was supplied as JSON null.
func (p *RequestBodyParser) IsNull(key string) bool {
	if p.jsonData == nil {
		return false
	}
	v, ok := p.jsonData[key]
	return ok && v == nil
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

var entryFields = []string{"amount_in", "amount_out", "date_in", "date_out", "type_ref", "note"}

// ParseEntryInput builds a new entry from the body. Missing or
// non-numeric amounts become 0; negative amounts and malformed dates or
// type references are rejected.
func ParseEntryInput(p *RequestBodyParser) (core.EntryInput, error) {
	var in core.EntryInput
	var err error
	if in.AmountIn, err = lenientAmount(p, "amount_in"); err != nil {
		return in, err
	}
	if in.AmountOut, err = lenientAmount(p, "amount_out"); err != nil {
		return in, err
	}
	if in.DateIn, err = optionalDate(p, "date_in"); err != nil {
		return in, err
	}
	if in.DateOut, err = optionalDate(p, "date_out"); err != nil {
		return in, err
	}
	if in.TypeRef, err = optionalTypeRef(p); err != nil {
		return in, err
	}
	in.Note = optionalNote(p)

	if raw := p.Get("created_at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return in, &core.ValidationError{Field: "created_at", Err: errors.New("must be RFC 3339")}
		}
		in.CreatedAt = t.UTC()
	}

	return in, in.Validate()
}

// ParseEntryPatch builds a partial update from the allow-listed keys
// present in the body. Unknown keys are ignored.
func ParseEntryPatch(p *RequestBodyParser) (core.EntryPatch, error) {
	var patch core.EntryPatch
	for _, key := range entryFields {
		if !p.Has(key) {
			continue
		}
		switch key {
		case "amount_in", "amount_out":
			m, err := strictAmount(p, key)
			if err != nil {
				return patch, err
			}
			if key == "amount_in" {
				patch.AmountIn = core.Set(m)
			} else {
				patch.AmountOut = core.Set(m)
			}
		case "date_in", "date_out":
			d, err := optionalDate(p, key)
			if err != nil {
				return patch, err
			}
			if key == "date_in" {
				patch.DateIn = core.Set(d)
			} else {
				patch.DateOut = core.Set(d)
			}
		case "type_ref":
			ref, err := optionalTypeRef(p)
			if err != nil {
				return patch, err
			}
			patch.TypeRef = core.Set(ref)
		case "note":
			patch.Note = core.Set(optionalNote(p))
		}
	}
	return patch, patch.Validate()
}

// ParseLabel reads the type label.
func ParseLabel(p *RequestBodyParser) (string, error) {
	return core.ValidateLabel(p.Get("label"))
}

// lenientAmount coerces missing or non-numeric input to 0 but still
// rejects negative numbers.
func lenientAmount(p *RequestBodyParser, key string) (core.Money, error) {
	cents, err := core.ParseAmount(p.Get(key))
	switch {
	case errors.Is(err, core.ErrNegativeAmount):
		return core.Money{}, &core.ValidationError{Field: key, Err: err}
	case err != nil:
		return core.Money{}, nil
	}
	return core.Money{Cents: cents}, nil
}

// strictAmount treats null or empty as 0 and rejects anything else that
// does not parse.
func strictAmount(p *RequestBodyParser, key string) (core.Money, error) {
	raw := p.Get(key)
	if p.IsNull(key) || raw == "" {
		return core.Money{}, nil
	}
	cents, err := core.ParseAmount(raw)
	if err != nil {
		return core.Money{}, &core.ValidationError{Field: key, Err: err}
	}
	return core.Money{Cents: cents}, nil
}

func optionalDate(p *RequestBodyParser, key string) (*core.Date, error) {
	raw := p.Get(key)
	if raw == "" {
		return nil, nil
	}
	if err := validate.Var(raw, "datetime=2006-01-02"); err != nil {
		return nil, &core.ValidationError{Field: key, Err: errors.New("must be YYYY-MM-DD")}
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return nil, &core.ValidationError{Field: key, Err: err}
	}
	return &d, nil
}

func optionalTypeRef(p *RequestBodyParser) (*int64, error) {
	raw := p.Get("type_ref")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, &core.ValidationError{Field: "type_ref", Err: errors.New("must be a positive integer")}
	}
	return &id, nil
}

// optionalNote returns nil for an absent, null or blank note, so "no note"
// is always stored as NULL.
func optionalNote(p *RequestBodyParser) *string {
	if !p.Has("note") || p.IsNull("note") {
		return nil
	}
	note := p.Get("note")
	if note == "" {
		return nil
	}
	return &note
}
