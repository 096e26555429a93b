package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/medindex/practo-crawler/internal/normalize"
	"github.com/medindex/practo-crawler/internal/practo"
	"github.com/medindex/practo-crawler/internal/relation"
	"github.com/medindex/practo-crawler/internal/store"
)

type fakeFetcher struct {
	bodies map[string]string
	calls  []string
}

func (f *fakeFetcher) JSON(_ context.Context, url string, out any) error {
	f.calls = append(f.calls, url)
	body, ok := f.bodies[url]
	if !ok {
		return fmt.Errorf("no response for %s", url)
	}
	return json.Unmarshal([]byte(body), out)
}

func (f *fakeFetcher) Raw(_ context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	body, ok := f.bodies[url]
	if !ok {
		return nil, fmt.Errorf("no response for %s", url)
	}
	return []byte(body), nil
}

type fakePersister struct {
	doctorBatches        [][]practo.Doctor
	establishmentBatches [][]practo.Establishment
	relationOwners       []string
	relationErr          error
}

func (p *fakePersister) UpsertDoctors(_ context.Context, doctors []practo.Doctor) (store.BatchResult, error) {
	p.doctorBatches = append(p.doctorBatches, doctors)
	return store.BatchResult{Applied: len(doctors)}, nil
}

func (p *fakePersister) UpsertEstablishments(_ context.Context, establishments []practo.Establishment) (store.BatchResult, error) {
	p.establishmentBatches = append(p.establishmentBatches, establishments)
	return store.BatchResult{Applied: len(establishments)}, nil
}

func (p *fakePersister) UpsertRelations(_ context.Context, ownerID string, _ practo.Kind, res *relation.Result) (store.BatchResult, error) {
	if p.relationErr != nil {
		return store.BatchResult{}, p.relationErr
	}
	p.relationOwners = append(p.relationOwners, ownerID)
	return store.BatchResult{Applied: len(res.Edges)}, nil
}

type fakeClock struct {
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return time.Unix(1700000000, 0).UTC() }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) {
	c.sleeps = append(c.sleeps, d)
}

func newTestCrawler(fetch *fakeFetcher, persist *fakePersister, clock *fakeClock) *Crawler {
	return New(
		fetch,
		normalize.New(nil),
		relation.NewExtractor(nil),
		persist,
		clock,
		Config{},
		nil,
	)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	reports := []SeedReport{
		{Succeeded: 3, Failed: 1},
		{Skipped: true},
		{Succeeded: 2, Skipped: true},
		{Failed: 4},
	}
	totals := Summarize(reports)
	require.Equal(t, 4, totals.Seeds)
	require.Equal(t, 5, totals.Succeeded)
	require.Equal(t, 5, totals.Failed)
	require.Equal(t, 2, totals.Skipped, "skipped counts seeds, not profiles")

	require.Equal(t, Totals{}, Summarize(nil))
}

func TestPageCount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		found, want int
	}{
		{1, 1},
		{9, 1},
		{10, 2},
		{11, 2},
		{25, 3},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, pageCount(tc.found, 10), "found %d", tc.found)
	}
}

func TestWithPage(t *testing.T) {
	t.Parallel()

	got, err := withPage("https://api.example/search?city=delhi", 3)
	require.NoError(t, err)
	require.Equal(t, "https://api.example/search?city=delhi&page=3", got)

	got, err = withPage("https://api.example/search?page=1&city=delhi", 2)
	require.NoError(t, err)
	require.Equal(t, "https://api.example/search?city=delhi&page=2", got)
}

func TestSeedResultCountDispatch(t *testing.T) {
	t.Parallel()

	var page normalize.ListingPage
	require.NoError(t, json.Unmarshal([]byte(`{
		"form": {"total_results": 7},
		"listing_data": {"doctors_found": 21}
	}`), &page))

	require.Equal(t, 21, seedResultCount("https://x/search?results_type=DOCTOR_SEARCH", &page))
	require.Equal(t, 7, seedResultCount("https://x/search?results_type=CLINIC_SEARCH", &page))
}

const doctorListingBody = `{
	"form": {"results_type": "doctor"},
	"listing_data": {"doctors_found": 1},
	"doctors": {"entities": {
		"d-1": {
			"translated_new_slug": "dr-jane",
			"profile_url": "/delhi/doctor/dr-jane",
			"doctor_name": "Jane Doe"
		}
	}}
}`

const doctorRelationBody = `{
	"data": {"providerRelations": {
		"establishment_count": 1,
		"relations": [{
			"fees": [{"amount": 500, "type": "consultation"}],
			"timings": [{"begin_time": "09:00", "end_time": "13:00", "available_days": ["MON"]}],
			"establishment": {"fabric_id": "est-1", "name": "City Hospital"}
		}]
	}}
}`

func TestRunDoctorSeed(t *testing.T) {
	t.Parallel()

	seed := "https://api.example/search?q=DOCTOR_SEARCH"
	profileURL, err := practo.KindDoctor.ProfileAPIURL("dr-jane")
	require.NoError(t, err)
	pageURL, err := withPage(seed, 1)
	require.NoError(t, err)

	fetch := &fakeFetcher{bodies: map[string]string{
		seed:       doctorListingBody,
		pageURL:    doctorListingBody,
		profileURL: doctorRelationBody,
		"https://www.practo.com/delhi/doctor/dr-jane": "<html></html>",
	}}
	persist := &fakePersister{}
	clock := &fakeClock{}

	reports := newTestCrawler(fetch, persist, clock).Run(context.Background(), []string{seed})
	require.Len(t, reports, 1)

	rep := reports[0]
	require.NoError(t, rep.Err)
	require.Equal(t, 1, rep.Found)
	require.Equal(t, 1, rep.Pages)
	require.Equal(t, 1, rep.Succeeded)
	require.Equal(t, 0, rep.Failed)
	require.False(t, rep.Skipped)

	require.Len(t, persist.doctorBatches, 1)
	require.Equal(t, "d-1", persist.doctorBatches[0][0].PractoUUID)
	require.Equal(t, []string{"d-1"}, persist.relationOwners)
	require.Empty(t, clock.sleeps, "single page crawls do not pace")
}

func TestRunEstablishmentSeed(t *testing.T) {
	t.Parallel()

	seed := "https://api.example/search?q=CLINIC_SEARCH"
	listing := `{
		"form": {"results_type": "clinic", "total_results": 1},
		"establishments": {"entities": {
			"c-1": {"name": "Smile Clinic", "slug": "smile-clinic", "profile_url": "/delhi/clinic/smile-clinic"}
		}}
	}`
	relationBody := `{"data": {"getEstablishmentRelations": {"total_results_count": 0, "results": []}}}`

	profileURL, err := practo.KindClinic.ProfileAPIURL("smile-clinic")
	require.NoError(t, err)
	pageURL, err := withPage(seed, 1)
	require.NoError(t, err)

	fetch := &fakeFetcher{bodies: map[string]string{
		seed:       listing,
		pageURL:    listing,
		profileURL: relationBody,
		"https://www.practo.com/delhi/clinic/smile-clinic": "<html></html>",
	}}
	persist := &fakePersister{}

	reports := newTestCrawler(fetch, persist, &fakeClock{}).Run(context.Background(), []string{seed})
	require.Len(t, reports, 1)
	require.Equal(t, 1, reports[0].Succeeded)
	require.Len(t, persist.establishmentBatches, 1)
	require.Equal(t, []string{"c-1"}, persist.relationOwners)
	require.Empty(t, persist.doctorBatches)
}

func TestRunSkipsSeedWithNoResults(t *testing.T) {
	t.Parallel()

	seed := "https://api.example/search?q=DOCTOR_SEARCH"
	fetch := &fakeFetcher{bodies: map[string]string{
		seed: `{"form": {"results_type": "doctor"}, "listing_data": {"doctors_found": 0}}`,
	}}

	reports := newTestCrawler(fetch, &fakePersister{}, &fakeClock{}).Run(context.Background(), []string{seed})
	require.Len(t, reports, 1)
	require.True(t, reports[0].Skipped)
	require.Equal(t, 0, reports[0].Pages)
}

func TestRunReportsSeedFetchFailure(t *testing.T) {
	t.Parallel()

	fetch := &fakeFetcher{bodies: map[string]string{}}
	reports := newTestCrawler(fetch, &fakePersister{}, &fakeClock{}).
		Run(context.Background(), []string{"https://api.example/broken"})
	require.Len(t, reports, 1)
	require.Error(t, reports[0].Err)
}

func TestRunPacesEveryFifthPage(t *testing.T) {
	t.Parallel()

	seed := "https://api.example/search?q=DOCTOR_SEARCH"
	fetch := &fakeFetcher{bodies: map[string]string{
		seed: `{"form": {"results_type": "doctor"}, "listing_data": {"doctors_found": 100}}`,
	}}
	clock := &fakeClock{}

	reports := newTestCrawler(fetch, &fakePersister{}, clock).Run(context.Background(), []string{seed})
	require.Len(t, reports, 1)
	require.Equal(t, 11, reports[0].Pages)
	require.Len(t, clock.sleeps, 2, "pages 5 and 10 pause")
	require.Equal(t, 3*time.Second, clock.sleeps[0])
}

func TestRunIsolatesProfileFailures(t *testing.T) {
	t.Parallel()

	seed := "https://api.example/search?q=DOCTOR_SEARCH"
	listing := `{
		"form": {"results_type": "doctor"},
		"listing_data": {"doctors_found": 2},
		"doctors": {"entities": {
			"d-1": {"translated_new_slug": "dr-ok", "profile_url": "/doctor/dr-ok", "doctor_name": "A B"},
			"d-2": {"translated_new_slug": "dr-broken", "profile_url": "/doctor/dr-broken", "doctor_name": "C D"}
		}}
	}`
	okProfile, err := practo.KindDoctor.ProfileAPIURL("dr-ok")
	require.NoError(t, err)
	pageURL, err := withPage(seed, 1)
	require.NoError(t, err)

	fetch := &fakeFetcher{bodies: map[string]string{
		seed:      listing,
		pageURL:   listing,
		okProfile: doctorRelationBody,
		"https://www.practo.com/doctor/dr-ok": "<html></html>",
	}}
	persist := &fakePersister{}

	reports := newTestCrawler(fetch, persist, &fakeClock{}).Run(context.Background(), []string{seed})
	require.Len(t, reports, 1)
	require.Equal(t, 1, reports[0].Succeeded)
	require.Equal(t, 1, reports[0].Failed)
	require.Equal(t, []string{"d-1"}, persist.relationOwners, "the good profile still persists")
}

func TestRunUnknownResultsTypeSkipsPage(t *testing.T) {
	t.Parallel()

	seed := "https://api.example/search?q=CLINIC_SEARCH"
	listing := `{"form": {"results_type": "pharmacy", "total_results": 1}}`
	pageURL, err := withPage(seed, 1)
	require.NoError(t, err)

	fetch := &fakeFetcher{bodies: map[string]string{seed: listing, pageURL: listing}}
	persist := &fakePersister{}

	reports := newTestCrawler(fetch, persist, &fakeClock{}).Run(context.Background(), []string{seed})
	require.Len(t, reports, 1)
	require.Equal(t, 0, reports[0].Succeeded)
	require.Equal(t, 0, reports[0].Failed)
	require.Empty(t, persist.doctorBatches)
	require.Empty(t, persist.establishmentBatches)
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetch := &fakeFetcher{bodies: map[string]string{}}
	reports := newTestCrawler(fetch, &fakePersister{}, &fakeClock{}).
		Run(ctx, []string{"https://a.example", "https://b.example"})
	require.Empty(t, reports)
	require.Empty(t, fetch.calls)
}
