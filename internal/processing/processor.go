package processing

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/DeafMist/bills-enricher/internal/categories"
	"github.com/DeafMist/bills-enricher/internal/models"
)

// ErrMalformedVote is returned when a vote string is not "<ayes>-<nays>".
var ErrMalformedVote = errors.New("malformed vote string")

const (
	introducedAction = "bill:introduced"

	// BaseCategory is prepended to every bill's categories regardless of its
	// subjects. It carries over from the first tracker, which only covered
	// transportation bills; keep it until product confirms it can go.
	BaseCategory   = "Transportation"
	VetoedCategory = "Vetoed"
)

// ParseVote splits a tally such as "88-44" into ayes and nays.
func ParseVote(raw string) (ayes, nays int, err error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedVote, raw)
	}
	ayes, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedVote, raw)
	}
	nays, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedVote, raw)
	}
	return ayes, nays, nil
}

// IsVetoed is true when the raw flag is present and not the literal "0".
func IsVetoed(raw *string) bool {
	return raw != nil && *raw != "" && *raw != "0"
}

// StartDate returns the date of the last action typed bill:introduced.
func StartDate(actions []models.Action) string {
	var date string
	for _, a := range actions {
		if slices.Contains(a.Type, introducedAction) {
			date = a.Date
		}
	}
	return date
}

// Categories maps subjects to display categories, keeping order, duplicates
// and empty strings for unmapped subjects.
func Categories(subjects []string, m *categories.Map) []string {
	out := make([]string, 0, len(subjects)+1)
	out = append(out, BaseCategory)
	for _, s := range subjects {
		out = append(out, m.Lookup(s))
	}
	return out
}

// StatusFacts are the inputs of the status rule chain.
type StatusFacts struct {
	LocalSigned  string
	RemoteSigned bool
	Vetoed       bool
	VetoLink     string
}

// StatusResult is the outcome of the rule chain.
type StatusResult struct {
	Status    models.BillStatus
	AddVetoed bool
}

type statusRule func(f StatusFacts, r *StatusResult)

// Applied left to right; a later rule overrides whatever an earlier one set.
var statusRules = []statusRule{
	func(f StatusFacts, r *StatusResult) {
		if f.LocalSigned != "" {
			r.Status = models.StatusSigned
		} else {
			r.Status = models.StatusPending
		}
	},
	func(f StatusFacts, r *StatusResult) {
		if f.RemoteSigned {
			r.Status = models.StatusSigned
		}
	},
	func(f StatusFacts, r *StatusResult) {
		switch {
		case f.Vetoed && f.VetoLink == "":
			r.Status = models.StatusVetoed
			r.AddVetoed = true
		case f.Vetoed:
			r.Status = models.StatusPartiallyVetoed
		}
	},
}

// DeriveStatus runs the status rule chain starting from indeterminate.
func DeriveStatus(f StatusFacts) StatusResult {
	r := StatusResult{Status: models.StatusIndeterminate}
	for _, rule := range statusRules {
		rule(f, &r)
	}
	return r
}
