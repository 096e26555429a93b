// Package relation extracts doctor-establishment relation edges from
// profile-API payloads and profile-page HTML.
package relation

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/medindex/practo-crawler/internal/practo"
)

// Edge is one (doctor, establishment, timing window) triple. A source
// relation with N timing windows expands into N edges sharing the same
// fee pair. Blank endpoint ids are preserved as-is: the upstream emits
// them and the row count must stay one-to-one with the source records.
type Edge struct {
	DoctorID        string
	EstablishmentID string
	FeeAmount       practo.Numeric
	FeeType         *string
	BeginTime       string
	EndTime         string
	AvailableDays   []string

	// Exactly one stub is set, for the edge's counterpart side.
	DoctorStub        *DoctorStub
	EstablishmentStub *EstablishmentStub
}

// DoctorStub carries the minimal doctor fields available from an
// establishment's relation payload, enough to create a placeholder row.
type DoctorStub struct {
	PractoUUID      string
	FirstName       string
	LastName        string
	ProfilePhoto    string
	ProfileURL      string
	Slug            string
	ExperienceYears practo.Numeric
}

// EstablishmentStub carries the minimal establishment fields available
// from a doctor's relation payload.
type EstablishmentStub struct {
	PractoUUID    string
	Name          string
	Slug          string
	ProfileURL    string
	City          string
	State         string
	Locality      string
	Latitude      practo.Numeric
	Longitude     practo.Numeric
	StreetAddress string
}

// Result is the full extraction for one profile visit.
type Result struct {
	Edges            []Edge
	CounterpartCount practo.Numeric
	BedCount         practo.Numeric
	AmbulanceCount   practo.Numeric
}

// Extractor parses profile payloads into Results.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor builds an Extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract dispatches on the owner's kind. Doctor profiles ignore the
// HTML page; establishment profiles scrape bed and ambulance counts from
// it.
func (e *Extractor) Extract(kind practo.Kind, ownerID string, profileJSON, pageHTML []byte) (*Result, error) {
	switch kind {
	case practo.KindDoctor:
		return e.doctorRelations(ownerID, profileJSON)
	case practo.KindHospital, practo.KindClinic:
		return e.establishmentRelations(ownerID, profileJSON, pageHTML)
	case practo.KindUnknown:
		return nil, fmt.Errorf("cannot extract relations for unknown entity kind")
	default:
		return nil, fmt.Errorf("cannot extract relations for kind %q", kind)
	}
}

// flexString tolerates upstream ids that arrive as numbers or strings.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*f = ""
		return nil
	}
	if s[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = flexString(v)
		return nil
	}
	*f = flexString(s)
	return nil
}

type fee struct {
	Amount practo.Numeric `json:"amount"`
	Type   *string        `json:"type"`
}

type timing struct {
	BeginTime     string   `json:"begin_time"`
	EndTime       string   `json:"end_time"`
	AvailableDays []string `json:"available_days"`
}

func firstFee(fees []fee) fee {
	if len(fees) == 0 {
		return fee{}
	}
	return fees[0]
}

func nonNilDays(days []string) []string {
	if days == nil {
		return []string{}
	}
	return days
}
