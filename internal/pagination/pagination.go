package pagination

import (
	"net/http"
	"strconv"
	"strings"
)

// Default list limits
const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Params represents list query parameters
type Params struct {
	Limit int `json:"limit"`
}

// ParseParams extracts the list limit from the request. A missing or
// malformed limit falls back to DefaultLimit; larger values are capped.
func ParseParams(r *http.Request) Params {
	p := Params{Limit: DefaultLimit}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(strings.TrimSpace(limitStr)); err == nil {
			p.Limit = l
		}
	}

	p.Validate()
	return p
}

// Validate ensures the limit is within bounds
func (p *Params) Validate() {
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

// Int64 reads an integer query parameter. Missing or malformed values are 0.
func Int64(r *http.Request, name string) int64 {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f > -9.2e18 && f < 9.2e18 {
		return int64(f)
	}
	return 0
}
