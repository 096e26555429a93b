// Package practo defines the canonical entity types shared across the
// crawl pipeline.
package practo

// Doctor is one care provider row, keyed by the upstream-assigned UUID.
type Doctor struct {
	PractoUUID            string
	Slug                  string
	Rank                  Numeric
	ProfilePhoto          string
	ProfileURL            string
	FirstName             string
	LastName              string
	Qualifications        string
	Specialization        string
	Specialties           string
	ExperienceYears       Numeric
	Summary               string
	Services              []string
	ServicesCount         Numeric
	RecommendationPercent Numeric
	PatientsCount         Numeric
	ReviewsCount          Numeric
}

// Establishment is one care facility row (hospital or clinic), keyed by
// the upstream-assigned UUID.
type Establishment struct {
	PractoUUID      string
	Name            string
	Slug            string
	PracticeType    string
	ProfileURL      string
	ImageURL        string
	StreetAddress   string
	PostalCode      string
	Locality        string
	City            string
	State           string
	Latitude        Numeric
	Longitude       Numeric
	MinPrice        Numeric
	MaxPrice        Numeric
	Phone           string
	PhoneExtension  string
	Rating          Numeric
	ReviewsCount    Numeric
	PracticeTimings string
}

// ProfileRef links a listing entity to its detail-profile fetch. It is
// transient and never persisted.
type ProfileRef struct {
	ID   string
	Slug string
	URL  string
}
