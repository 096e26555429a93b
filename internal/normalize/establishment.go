package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/medindex/practo-crawler/internal/practo"
)

// establishmentEntity is the raw listing shape shared by hospitals and
// clinics.
type establishmentEntity struct {
	Name            string         `json:"name"`
	Slug            string         `json:"slug"`
	PracticeType    string         `json:"practice_type"`
	ProfileURL      string         `json:"profile_url"`
	ImageURL        string         `json:"image_url"`
	AddressLine1    string         `json:"address_line1"`
	AddressLine2    string         `json:"address_line2"`
	Zipcode         string         `json:"zipcode"`
	Locality        string         `json:"locality"`
	City            string         `json:"city"`
	State           string         `json:"state"`
	Latitude        practo.Numeric `json:"latitude"`
	Longitude       practo.Numeric `json:"longitude"`
	MinPrice        practo.Numeric `json:"min_price"`
	MaxPrice        practo.Numeric `json:"max_price"`
	VNPhoneNumber   phoneNumber    `json:"vn_phone_number"`
	Rating          practo.Numeric `json:"rating"`
	ReviewsCount    practo.Numeric `json:"reviews_count"`
	PracticeTimings string         `json:"practice_timings"`
}

type phoneNumber struct {
	Number    string `json:"number"`
	Extension string `json:"extension"`
}

// Establishments normalizes a hospital or clinic listing page. The two
// subtypes share one schema.
func (n *Normalizer) Establishments(page *ListingPage) ([]practo.Establishment, []practo.ProfileRef, error) {
	if page == nil || page.Establishments == nil || page.Establishments.Entities.Raw == nil {
		return nil, nil, fmt.Errorf("%w: missing establishments collection", ErrShape)
	}

	establishments := make([]practo.Establishment, 0, len(page.Establishments.Entities.IDs))
	refs := make([]practo.ProfileRef, 0, len(page.Establishments.Entities.IDs))
	for _, id := range page.Establishments.Entities.IDs {
		var raw establishmentEntity
		if err := json.Unmarshal(page.Establishments.Entities.Raw[id], &raw); err != nil {
			n.logger.Warn("establishment entity decode degraded", zap.String("id", id), zap.Error(err))
		}
		e := practo.Establishment{
			PractoUUID:      id,
			Name:            raw.Name,
			Slug:            raw.Slug,
			PracticeType:    raw.PracticeType,
			ProfileURL:      practo.AbsoluteURL(raw.ProfileURL),
			ImageURL:        raw.ImageURL,
			StreetAddress:   fmt.Sprintf("%s, %s", strings.TrimSpace(raw.AddressLine1), raw.AddressLine2),
			PostalCode:      raw.Zipcode,
			Locality:        raw.Locality,
			City:            raw.City,
			State:           raw.State,
			Latitude:        raw.Latitude,
			Longitude:       raw.Longitude,
			MinPrice:        raw.MinPrice,
			MaxPrice:        raw.MaxPrice,
			Phone:           raw.VNPhoneNumber.Number,
			PhoneExtension:  raw.VNPhoneNumber.Extension,
			Rating:          raw.Rating,
			ReviewsCount:    raw.ReviewsCount,
			PracticeTimings: raw.PracticeTimings,
		}
		establishments = append(establishments, e)
		refs = append(refs, practo.ProfileRef{ID: id, Slug: e.Slug, URL: e.ProfileURL})
	}
	return establishments, refs, nil
}
