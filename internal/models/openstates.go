package models

// BillDetail is the subset of the Open States bill payload the enricher reads.
type BillDetail struct {
	Title       string        `json:"title"`
	Sources     []Source      `json:"sources"`
	ActionDates ActionDates   `json:"action_dates"`
	Actions     []Action      `json:"actions"`
	Subjects    []string      `json:"subjects"`
	Sponsors    []BillSponsor `json:"sponsors"`
}

type Source struct {
	URL string `json:"url"`
}

type ActionDates struct {
	Last   *string `json:"last"`
	Signed *string `json:"signed"`
}

type Action struct {
	Type []string `json:"type"`
	Date string   `json:"date"`
}

type BillSponsor struct {
	Chamber string `json:"chamber"`
	LegID   string `json:"leg_id"`
	Name    string `json:"name"`
}

// Legislator is the subset of the Open States legislator payload.
type Legislator struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Party    string `json:"party"`
	PhotoURL string `json:"photo_url"`
	URL      string `json:"url"`
	Chamber  string `json:"chamber"`
}
