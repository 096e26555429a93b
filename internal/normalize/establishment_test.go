package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstablishmentsNormalization(t *testing.T) {
	t.Parallel()

	var page ListingPage
	require.NoError(t, json.Unmarshal([]byte(`{
		"form": {"results_type": "hospital", "total_results": 1},
		"establishments": {"entities": {
			"h-1": {
				"name": "City Hospital",
				"slug": "city-hospital",
				"practice_type": "hospital",
				"profile_url": "/delhi/hospital/city-hospital",
				"image_url": "https://img.example/h.jpg",
				"address_line1": "  12 Main Road ",
				"address_line2": "Block B",
				"zipcode": "110001",
				"locality": "Connaught Place",
				"city": "Delhi",
				"state": "Delhi",
				"latitude": "28.63",
				"longitude": 77.21,
				"min_price": "200",
				"max_price": "",
				"vn_phone_number": {"number": "+911140000000", "extension": "12"},
				"rating": 4.4,
				"reviews_count": "87",
				"practice_timings": "Mon-Sat 9-5"
			}
		}}
	}`), &page))

	establishments, refs, err := New(nil).Establishments(&page)
	require.NoError(t, err)
	require.Len(t, establishments, 1)
	require.Len(t, refs, 1)

	e := establishments[0]
	require.Equal(t, "h-1", e.PractoUUID)
	require.Equal(t, "City Hospital", e.Name)
	require.Equal(t, "https://www.practo.com/delhi/hospital/city-hospital", e.ProfileURL)
	require.Equal(t, "12 Main Road, Block B", e.StreetAddress, "line1 is trimmed, line2 is not")
	require.Equal(t, "110001", e.PostalCode)
	require.Equal(t, "28.63", e.Latitude.Decimal.String())
	require.Equal(t, "77.21", e.Longitude.Decimal.String())
	require.Equal(t, 200, e.MinPrice.IntOrZero())
	require.False(t, e.MaxPrice.Valid, "empty string price stays null")
	require.Equal(t, "+911140000000", e.Phone)
	require.Equal(t, "12", e.PhoneExtension)
	require.Equal(t, "4.4", e.Rating.Decimal.String())
	require.Equal(t, 87, e.ReviewsCount.IntOrZero())

	require.Equal(t, "h-1", refs[0].ID)
	require.Equal(t, "city-hospital", refs[0].Slug)
}

func TestEstablishmentsMissingCollectionIsShapeError(t *testing.T) {
	t.Parallel()

	var page ListingPage
	require.NoError(t, json.Unmarshal([]byte(`{"form": {"results_type": "clinic"}}`), &page))
	_, _, err := New(nil).Establishments(&page)
	require.ErrorIs(t, err, ErrShape)
}
