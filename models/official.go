package models

import (
	"time"
)

// Official is the public official whose declared facts get indexed.
// Every field except ID and Name is optional; empty strings and nil
// pointers mean the value was never declared.
type Official struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Position            string    `json:"position,omitempty"`
	Party               string    `json:"party,omitempty"`
	Constituency        string    `json:"constituency,omitempty"`
	State               string    `json:"state,omitempty"`
	Education           string    `json:"education,omitempty"`
	Assets              string    `json:"assets,omitempty"`      // e.g. "₹5 Crore"
	Liabilities         string    `json:"liabilities,omitempty"` // e.g. "₹40 Lakh"
	CriminalCases       *int      `json:"criminal_cases,omitempty"`
	CriminalCaseDetails string    `json:"criminal_case_details,omitempty"`
	PoliticalRelatives  string    `json:"political_relatives,omitempty"`
	DynastyStatus       string    `json:"dynasty_status,omitempty"`
	SourceURL           string    `json:"source_url,omitempty"`
	CreatedAt           time.Time `json:"created_at,omitempty"`
	UpdatedAt           time.Time `json:"updated_at,omitempty"`
}
