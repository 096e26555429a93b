package relation

import (
	"encoding/json"
	"fmt"

	"github.com/medindex/practo-crawler/internal/practo"
)

// doctorProfile is the provider relation-API payload.
type doctorProfile struct {
	Data struct {
		ProviderRelations struct {
			EstablishmentCount practo.Numeric   `json:"establishment_count"`
			Relations          []doctorRelation `json:"relations"`
		} `json:"providerRelations"`
	} `json:"data"`
}

type doctorRelation struct {
	Fees          []fee    `json:"fees"`
	Timings       []timing `json:"timings"`
	Establishment struct {
		FabricID   flexString `json:"fabric_id"`
		Name       string     `json:"name"`
		Slug       string     `json:"slug"`
		ProfileURL string     `json:"profile_url"`
		Address    struct {
			City struct {
				CityName  string `json:"city_name"`
				StateName string `json:"state_name"`
			} `json:"city"`
			Locality struct {
				Name string `json:"name"`
			} `json:"locality"`
			Latitude     practo.Numeric `json:"latitude"`
			Longitude    practo.Numeric `json:"longitude"`
			AddressLine1 string         `json:"address_line1"`
		} `json:"address"`
	} `json:"establishment"`
}

// doctorRelations expands a doctor's relation list into edges, one per
// (relation, timing) pair. Bed and ambulance counts do not apply to
// doctors and stay null.
func (e *Extractor) doctorRelations(doctorID string, profileJSON []byte) (*Result, error) {
	var profile doctorProfile
	if err := json.Unmarshal(profileJSON, &profile); err != nil {
		return nil, fmt.Errorf("decode doctor profile: %w", err)
	}

	rels := profile.Data.ProviderRelations
	res := &Result{CounterpartCount: rels.EstablishmentCount}
	for _, rel := range rels.Relations {
		f := firstFee(rel.Fees)
		est := rel.Establishment
		stub := &EstablishmentStub{
			PractoUUID:    string(est.FabricID),
			Name:          est.Name,
			Slug:          est.Slug,
			ProfileURL:    est.ProfileURL,
			City:          est.Address.City.CityName,
			State:         est.Address.City.StateName,
			Locality:      est.Address.Locality.Name,
			Latitude:      est.Address.Latitude,
			Longitude:     est.Address.Longitude,
			StreetAddress: est.Address.AddressLine1,
		}
		for _, t := range rel.Timings {
			res.Edges = append(res.Edges, Edge{
				DoctorID:          doctorID,
				EstablishmentID:   string(est.FabricID),
				FeeAmount:         f.Amount,
				FeeType:           f.Type,
				BeginTime:         t.BeginTime,
				EndTime:           t.EndTime,
				AvailableDays:     nonNilDays(t.AvailableDays),
				EstablishmentStub: stub,
			})
		}
	}
	return res, nil
}
