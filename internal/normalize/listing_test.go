package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntitySetPreservesDocumentOrder(t *testing.T) {
	t.Parallel()

	body := `{"zzz": {"a": 1}, "aaa": {"b": 2}, "mmm": {"c": 3}}`
	var set EntitySet
	require.NoError(t, json.Unmarshal([]byte(body), &set))
	require.Equal(t, []string{"zzz", "aaa", "mmm"}, set.IDs)
	require.Len(t, set.Raw, 3)
	require.JSONEq(t, `{"b": 2}`, string(set.Raw["aaa"]))
}

func TestEntitySetNullAndEmpty(t *testing.T) {
	t.Parallel()

	var set EntitySet
	require.NoError(t, json.Unmarshal([]byte(`null`), &set))
	require.Empty(t, set.IDs)

	require.NoError(t, json.Unmarshal([]byte(`{}`), &set))
	require.Empty(t, set.IDs)
	require.NotNil(t, set.Raw)
}

func TestEntitySetRejectsNonObject(t *testing.T) {
	t.Parallel()

	var set EntitySet
	require.Error(t, json.Unmarshal([]byte(`[1, 2]`), &set))
}

func TestSplitName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in    string
		first string
		last  string
	}{
		{"Dr. Jane Doe Smith", "Dr. Jane", "Doe Smith"},
		{"Jane Doe", "Jane Doe", ""},
		{"Jane", "Jane", ""},
		{"", "", ""},
		{"  Dr.   Jane   Doe  ", "Dr. Jane", "Doe"},
	}
	for _, tc := range cases {
		first, last := SplitName(tc.in)
		require.Equal(t, tc.first, first, "input %q", tc.in)
		require.Equal(t, tc.last, last, "input %q", tc.in)
	}
}

func TestListingPageEnvelope(t *testing.T) {
	t.Parallel()

	body := `{
		"form": {"results_type": "hospital", "total_results": "37"},
		"listing_data": {"doctors_found": 12},
		"establishments": {"entities": {"e1": {"name": "A"}}}
	}`
	var page ListingPage
	require.NoError(t, json.Unmarshal([]byte(body), &page))
	require.Equal(t, "hospital", page.Form.ResultsType)
	require.Equal(t, 37, page.Form.TotalResults.IntOrZero())
	require.Equal(t, 12, page.ListingData.DoctorsFound.IntOrZero())
	require.Nil(t, page.Doctors)
	require.NotNil(t, page.Establishments)
	require.Equal(t, []string{"e1"}, page.Establishments.Entities.IDs)
}
