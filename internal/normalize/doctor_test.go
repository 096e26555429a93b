package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func doctorListing(t *testing.T, body string) *ListingPage {
	t.Helper()
	var page ListingPage
	require.NoError(t, json.Unmarshal([]byte(body), &page))
	return &page
}

func TestDoctorsNormalization(t *testing.T) {
	t.Parallel()

	page := doctorListing(t, `{
		"form": {"results_type": "doctor"},
		"doctors": {"entities": {
			"d-2": {
				"rank": "4",
				"translated_new_slug": "dr-jane-doe",
				"image_url": "https://img.example/jane.jpg",
				"profile_url": "/delhi/doctor/dr-jane-doe",
				"doctor_name": "Dr. Jane Doe Smith",
				"qualifications": {"mbbs": {"college": "X"}},
				"specialization": "Dentist",
				"specialties": ["dentistry"],
				"experience_years": "11",
				"summary": "A dentist.",
				"non_popular_services": ["Filling", "Cleaning"],
				"services_count": 2,
				"recommendation_percent": "98",
				"patients_count": "1500",
				"reviews_count": 210
			},
			"d-1": {
				"doctor_name": "Bob",
				"experience_years": ""
			}
		}}
	}`)

	doctors, refs, err := New(nil).Doctors(page)
	require.NoError(t, err)
	require.Len(t, doctors, 2)
	require.Len(t, refs, 2)

	first := doctors[0]
	require.Equal(t, "d-2", first.PractoUUID, "payload order wins, not key order")
	require.Equal(t, "dr-jane-doe", first.Slug)
	require.Equal(t, 4, first.Rank.IntOrZero())
	require.Equal(t, "https://www.practo.com/delhi/doctor/dr-jane-doe", first.ProfileURL)
	require.Equal(t, "Dr. Jane", first.FirstName)
	require.Equal(t, "Doe Smith", first.LastName)
	require.JSONEq(t, `{"mbbs": {"college": "X"}}`, first.Qualifications)
	require.JSONEq(t, `["dentistry"]`, first.Specialties)
	require.Equal(t, 11, first.ExperienceYears.IntOrZero())
	require.Equal(t, []string{"Filling", "Cleaning"}, first.Services)
	require.Equal(t, 98, first.RecommendationPercent.IntOrZero())

	second := doctors[1]
	require.Equal(t, "d-1", second.PractoUUID)
	require.Equal(t, "Bob", second.FirstName)
	require.Equal(t, "", second.LastName)
	require.False(t, second.ExperienceYears.Valid)
	require.Equal(t, "{}", second.Qualifications, "absent raw fields fall back to empty object")
	require.Equal(t, []string{}, second.Services)

	require.Equal(t, "d-2", refs[0].ID)
	require.Equal(t, "dr-jane-doe", refs[0].Slug)
	require.Equal(t, "https://www.practo.com/delhi/doctor/dr-jane-doe", refs[0].URL)
}

func TestDoctorsMissingCollectionIsShapeError(t *testing.T) {
	t.Parallel()

	page := doctorListing(t, `{"form": {"results_type": "doctor"}}`)
	_, _, err := New(nil).Doctors(page)
	require.ErrorIs(t, err, ErrShape)

	_, _, err = New(nil).Doctors(nil)
	require.ErrorIs(t, err, ErrShape)
}

func TestDoctorsUndecodableEntityDegrades(t *testing.T) {
	t.Parallel()

	page := doctorListing(t, `{
		"doctors": {"entities": {
			"bad": {"rank": [], "doctor_name": 7},
			"good": {"doctor_name": "Ann Lee"}
		}}
	}`)

	doctors, refs, err := New(nil).Doctors(page)
	require.NoError(t, err)
	require.Len(t, doctors, 2)
	require.Len(t, refs, 2)
	require.Equal(t, "bad", doctors[0].PractoUUID)
	require.Equal(t, "Ann Lee", doctors[1].FirstName)
}
