// Package collection provides the data model for museum collection records
// and the canonical text descriptions used as embedding input.
package collection

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/maia-posternack/anadol-counterfactual/internal/errortypes"
)

// Unknown is the display default for any field a record or creator does not
// resolve. The build pipeline omits absent fields instead; only the serving
// layer substitutes Unknown.
const Unknown = "Unknown"

// Record is one collection item in its original field shape.
type Record struct {
	Title           string `json:"Title"`
	Artist          string `json:"Artist"`
	ConstituentIDs  []int  `json:"ConstituentID"`
	Date            string `json:"Date"`
	Medium          string `json:"Medium"`
	Dimensions      string `json:"Dimensions"`
	Classification  string `json:"Classification"`
	Department      string `json:"Department"`
	DateAcquired    string `json:"DateAcquired"`
	CreditLine      string `json:"CreditLine"`
	CuratorApproved string `json:"CuratorApproved,omitempty"`
}

// Creator is a resolved artist entry.
type Creator struct {
	ConstituentID int    `json:"ConstituentID"`
	DisplayName   string `json:"DisplayName"`
	Nationality   string `json:"Nationality"`
	Gender        string `json:"Gender"`
	BeginDate     int    `json:"BeginDate"`
	EndDate       int    `json:"EndDate"`
}

// CreatorTable looks creators up by constituent identifier.
type CreatorTable map[int]Creator

// Eligible reports whether the record carries enough metadata to enter the
// latent space. Records without a title or creator name, or flagged as not
// curator approved, are excluded before embedding and never receive an
// identifier.
func (r Record) Eligible() bool {
	if r.Title == "" || r.Artist == "" {
		return false
	}
	if r.CuratorApproved == "N" {
		return false
	}
	return true
}

// PrimaryConstituent returns the first creator identifier on the record.
// By convention the first element is the primary creator.
func (r Record) PrimaryConstituent() (int, bool) {
	if len(r.ConstituentIDs) == 0 {
		return 0, false
	}
	return r.ConstituentIDs[0], true
}

// PrimaryCreator resolves the record's primary creator against the table.
// An absent or unresolvable creator is a valid state, not an error.
func (r Record) PrimaryCreator(creators CreatorTable) (Creator, bool) {
	id, ok := r.PrimaryConstituent()
	if !ok {
		return Creator{}, false
	}
	c, ok := creators[id]
	return c, ok
}

// LoadRecords reads a JSON array of records in original field shape.
func LoadRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errortypes.ConfigError(err, "failed to read records file").WithField("path", path)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errortypes.ConfigError(err, "failed to parse records file").WithField("path", path)
	}

	return records, nil
}

// LoadCreators reads a JSON array of creator entries and indexes it by
// constituent identifier.
func LoadCreators(path string) (CreatorTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errortypes.ConfigError(err, "failed to read creators file").WithField("path", path)
	}

	var creators []Creator
	if err := json.Unmarshal(data, &creators); err != nil {
		return nil, errortypes.ConfigError(err, "failed to parse creators file").WithField("path", path)
	}

	table := make(CreatorTable, len(creators))
	for _, c := range creators {
		table[c.ConstituentID] = c
	}
	return table, nil
}

// FilterEligible returns the records that pass the minimal-metadata check,
// preserving input order.
func FilterEligible(records []Record) []Record {
	eligible := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Eligible() {
			eligible = append(eligible, r)
		}
	}
	return eligible
}

// YearString formats a creator year field for display; zero means unrecorded.
func YearString(year int) string {
	if year == 0 {
		return Unknown
	}
	return fmt.Sprintf("%d", year)
}
