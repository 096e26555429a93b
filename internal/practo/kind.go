package practo

import (
	"fmt"
	"strings"
)

// Kind enumerates the entity types the listing API serves. Hospitals and
// clinics share the establishment schema but keep distinct tags because
// the upstream reports them separately.
type Kind int

const (
	KindUnknown Kind = iota
	KindDoctor
	KindHospital
	KindClinic
)

// KindFromResultsType maps the form.results_type tag in a listing
// response body to a Kind.
func KindFromResultsType(s string) Kind {
	switch s {
	case "doctor":
		return KindDoctor
	case "hospital":
		return KindHospital
	case "clinic":
		return KindClinic
	default:
		return KindUnknown
	}
}

func (k Kind) String() string {
	switch k {
	case KindDoctor:
		return "doctor"
	case KindHospital:
		return "hospital"
	case KindClinic:
		return "clinic"
	default:
		return "unknown"
	}
}

// IsEstablishment reports whether k persists to the establishments table.
func (k Kind) IsEstablishment() bool {
	switch k {
	case KindHospital, KindClinic:
		return true
	default:
		return false
	}
}

// Origin is the site root used to absolutize relative profile URLs.
const Origin = "https://www.practo.com"

const (
	doctorProfileAPI        = Origin + "/marketplace-api/dweb/profile/provider/relation?profile_slug=%s&profile_type=doctor&platform=desktop_web&slug=%s"
	establishmentProfileAPI = Origin + "/marketplace-api/dweb/profile/establishment/provider-relation-paginated?establishmentSlug=%s&platform=desktop_web"
)

// ProfileAPIURL returns the relation-profile endpoint for an entity of
// this kind identified by slug.
func (k Kind) ProfileAPIURL(slug string) (string, error) {
	switch k {
	case KindDoctor:
		return fmt.Sprintf(doctorProfileAPI, slug, slug), nil
	case KindHospital, KindClinic:
		return fmt.Sprintf(establishmentProfileAPI, slug), nil
	default:
		return "", fmt.Errorf("no profile endpoint for kind %q", k)
	}
}

// AbsoluteURL materializes a site-relative path into an absolute URL.
// Already-absolute URLs pass through untouched.
func AbsoluteURL(path string) string {
	if strings.HasPrefix(path, "/") {
		return Origin + path
	}
	return path
}

// IsDoctorSearchURL reports whether a seed URL hits the provider-search
// endpoint, which carries its result count under a different JSON path
// than the establishment searches.
func IsDoctorSearchURL(u string) bool {
	return strings.Contains(u, "DOCTOR_SEARCH")
}
