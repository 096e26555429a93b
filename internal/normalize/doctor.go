package normalize

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/medindex/practo-crawler/internal/practo"
)

// Normalizer turns listing payloads into canonical records.
type Normalizer struct {
	logger *zap.Logger
}

// New builds a Normalizer.
func New(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// doctorEntity is the raw listing shape for one doctor. Numeric fields
// arrive as numbers or strings interchangeably.
type doctorEntity struct {
	Rank                  practo.Numeric  `json:"rank"`
	Slug                  string          `json:"translated_new_slug"`
	ImageURL              string          `json:"image_url"`
	ProfileURL            string          `json:"profile_url"`
	DoctorName            string          `json:"doctor_name"`
	Qualifications        json.RawMessage `json:"qualifications"`
	Specialization        string          `json:"specialization"`
	Specialties           json.RawMessage `json:"specialties"`
	ExperienceYears       practo.Numeric  `json:"experience_years"`
	Summary               string          `json:"summary"`
	Services              []string        `json:"non_popular_services"`
	ServicesCount         practo.Numeric  `json:"services_count"`
	RecommendationPercent practo.Numeric  `json:"recommendation_percent"`
	PatientsCount         practo.Numeric  `json:"patients_count"`
	ReviewsCount          practo.Numeric  `json:"reviews_count"`
}

// Doctors normalizes a doctor listing page into canonical records plus
// profile references, preserving the payload's entity order. A missing
// doctors collection is a shape error; a single undecodable entity only
// degrades that entity to its zero values.
func (n *Normalizer) Doctors(page *ListingPage) ([]practo.Doctor, []practo.ProfileRef, error) {
	if page == nil || page.Doctors == nil || page.Doctors.Entities.Raw == nil {
		return nil, nil, fmt.Errorf("%w: missing doctors collection", ErrShape)
	}

	doctors := make([]practo.Doctor, 0, len(page.Doctors.Entities.IDs))
	refs := make([]practo.ProfileRef, 0, len(page.Doctors.Entities.IDs))
	for _, id := range page.Doctors.Entities.IDs {
		var raw doctorEntity
		if err := json.Unmarshal(page.Doctors.Entities.Raw[id], &raw); err != nil {
			n.logger.Warn("doctor entity decode degraded", zap.String("id", id), zap.Error(err))
		}
		first, last := SplitName(raw.DoctorName)
		services := raw.Services
		if services == nil {
			services = []string{}
		}
		d := practo.Doctor{
			PractoUUID:            id,
			Slug:                  raw.Slug,
			Rank:                  raw.Rank,
			ProfilePhoto:          raw.ImageURL,
			ProfileURL:            practo.AbsoluteURL(raw.ProfileURL),
			FirstName:             first,
			LastName:              last,
			Qualifications:        rawJSONText(raw.Qualifications),
			Specialization:        raw.Specialization,
			Specialties:           rawJSONText(raw.Specialties),
			ExperienceYears:       raw.ExperienceYears,
			Summary:               raw.Summary,
			Services:              services,
			ServicesCount:         raw.ServicesCount,
			RecommendationPercent: raw.RecommendationPercent,
			PatientsCount:         raw.PatientsCount,
			ReviewsCount:          raw.ReviewsCount,
		}
		doctors = append(doctors, d)
		refs = append(refs, practo.ProfileRef{ID: id, Slug: d.Slug, URL: d.ProfileURL})
	}
	return doctors, refs, nil
}
