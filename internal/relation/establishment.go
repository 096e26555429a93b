package relation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/medindex/practo-crawler/internal/normalize"
	"github.com/medindex/practo-crawler/internal/practo"
)

// establishmentProfile is the establishment relation-API payload.
type establishmentProfile struct {
	Data struct {
		GetEstablishmentRelations struct {
			TotalResultsCount practo.Numeric `json:"total_results_count"`
			Results           []struct {
				Relation establishmentRelation `json:"relation"`
			} `json:"results"`
		} `json:"getEstablishmentRelations"`
	} `json:"data"`
}

type establishmentRelation struct {
	Fees     []fee    `json:"fees"`
	Timings  []timing `json:"timings"`
	Provider struct {
		FabricID          flexString     `json:"fabric_id"`
		FullName          string         `json:"full_name"`
		EnhancedImageURL  string         `json:"enhanced_image_url"`
		ProfileURL        string         `json:"profile_url"`
		Slug              string         `json:"slug"`
		YearsOfExperience practo.Numeric `json:"years_of_experience"`
	} `json:"provider"`
}

// establishmentRelations expands an establishment's relation list into
// edges and scrapes the bed and ambulance counts from the rendered
// profile page.
func (e *Extractor) establishmentRelations(establishmentID string, profileJSON, pageHTML []byte) (*Result, error) {
	var profile establishmentProfile
	if err := json.Unmarshal(profileJSON, &profile); err != nil {
		return nil, fmt.Errorf("decode establishment profile: %w", err)
	}

	rels := profile.Data.GetEstablishmentRelations
	res := &Result{CounterpartCount: rels.TotalResultsCount}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse profile page: %w", err)
	}
	res.BedCount = scrapeMarkedCount(doc, "bed_count")
	res.AmbulanceCount = scrapeMarkedCount(doc, "ambulance_count")

	for _, r := range rels.Results {
		rel := r.Relation
		f := firstFee(rel.Fees)
		p := rel.Provider
		first, last := normalize.SplitName(p.FullName)
		stub := &DoctorStub{
			PractoUUID:      string(p.FabricID),
			FirstName:       first,
			LastName:        last,
			ProfilePhoto:    p.EnhancedImageURL,
			ProfileURL:      p.ProfileURL,
			Slug:            p.Slug,
			ExperienceYears: p.YearsOfExperience,
		}
		for _, t := range rel.Timings {
			res.Edges = append(res.Edges, Edge{
				DoctorID:        string(p.FabricID),
				EstablishmentID: establishmentID,
				FeeAmount:       f.Amount,
				FeeType:         f.Type,
				BeginTime:       t.BeginTime,
				EndTime:         t.EndTime,
				AvailableDays:   nonNilDays(t.AvailableDays),
				DoctorStub:      stub,
			})
		}
	}
	return res, nil
}

// scrapeMarkedCount locates the h3 carrying the given data-qa-id and
// takes the numeric suffix after the last "-". A missing element yields
// null, not zero.
func scrapeMarkedCount(doc *goquery.Document, qaID string) practo.Numeric {
	sel := doc.Find(fmt.Sprintf(`h3[data-qa-id=%q]`, qaID)).First()
	if sel.Length() == 0 {
		return practo.Numeric{}
	}
	text := strings.TrimSpace(sel.Text())
	parts := strings.Split(text, "-")
	return practo.CoerceNumeric(strings.TrimSpace(parts[len(parts)-1]))
}
