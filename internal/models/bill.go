package models

// BillStatus is the derived lifecycle state of a bill.
type BillStatus string

const (
	StatusIndeterminate   BillStatus = "indeterminate"
	StatusPending         BillStatus = "pending"
	StatusSigned          BillStatus = "signed"
	StatusVetoed          BillStatus = "vetoed"
	StatusPartiallyVetoed BillStatus = "partially vetoed"
)

// Chambers as reported by Open States.
const (
	ChamberUpper = "upper"
	ChamberLower = "lower"
)

// SourceBill is one entry of the hand-maintained bill list.
type SourceBill struct {
	Bill        string  `json:"bill"`
	HouseVote   *string `json:"house_vote,omitempty"`
	SenateVote  *string `json:"senate_vote,omitempty"`
	Vetoed      *string `json:"vetoed,omitempty"`
	VetoLink    *string `json:"veto_link,omitempty"`
	Signed      *string `json:"signed,omitempty"`
	Description *string `json:"description,omitempty"`
}

// SponsorDetail is serialized as [full_name, party, photo_url, profile_url].
type SponsorDetail [4]string

// NewSponsorDetail builds the tuple from a legislator record.
func NewSponsorDetail(l Legislator) SponsorDetail {
	return SponsorDetail{l.FullName, l.Party, l.PhotoURL, l.URL}
}

// EnrichedBill is the canonical output record, keyed by bill id.
type EnrichedBill struct {
	BillID      string  `json:"bill_id"`
	Description *string `json:"description,omitempty"`
	Signed      *string `json:"signed,omitempty"`

	HouseAyes  *int `json:"house_ayes,omitempty"`
	HouseNays  *int `json:"house_nays,omitempty"`
	SenateAyes *int `json:"senate_ayes,omitempty"`
	SenateNays *int `json:"senate_nays,omitempty"`

	Title     string     `json:"title,omitempty"`
	BillURL   string     `json:"billurl,omitempty"`
	StartDate string     `json:"start_date,omitempty"`
	EndDate   string     `json:"end_date,omitempty"`
	Status    BillStatus `json:"bill_status,omitempty"`
	Vetoed    bool       `json:"vetoed"`
	VetoLink  *string    `json:"veto_link,omitempty"`

	Categories     []string        `json:"categories"`
	SenateSponsors []SponsorDetail `json:"senate_sponsors"`
	HouseSponsors  []SponsorDetail `json:"house_sponsors"`
}

// Bills maps bill id to its enriched record.
type Bills map[string]*EnrichedBill
