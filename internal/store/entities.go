package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/medindex/practo-crawler/internal/practo"
)

var doctorColumns = []string{
	"practo_uuid",
	"slug",
	"practo_rank",
	"profile_photo",
	"profile_url",
	"first_name",
	"last_name",
	"qualifications",
	"specialization",
	"specialties",
	"experience_years",
	"summary",
	"services",
	"services_count",
	"recommendation_percent",
	"patients_count",
	"reviews_count",
}

var establishmentColumns = []string{
	"practo_uuid",
	"name",
	"slug",
	"practice_type",
	"profile_url",
	"image_url",
	"street_address",
	"postal_code",
	"locality",
	"city",
	"state",
	"latitude",
	"longitude",
	"min_price",
	"max_price",
	"phone",
	"phone_extension",
	"rating",
	"reviews_count",
	"practice_timings",
}

var (
	doctorUpdateClause        = buildUpdateClause(doctorColumns)
	establishmentUpdateClause = buildUpdateClause(establishmentColumns)
)

func doctorInsert(d practo.Doctor) sq.InsertBuilder {
	return builder().Insert(tableDoctors).
		Columns(doctorColumns...).
		Values(
			d.PractoUUID,
			d.Slug,
			d.Rank,
			d.ProfilePhoto,
			d.ProfileURL,
			d.FirstName,
			d.LastName,
			d.Qualifications,
			d.Specialization,
			d.Specialties,
			d.ExperienceYears,
			d.Summary,
			d.Services,
			d.ServicesCount,
			d.RecommendationPercent,
			d.PatientsCount,
			d.ReviewsCount,
		).
		Suffix("ON CONFLICT (practo_uuid) DO UPDATE SET " + doctorUpdateClause)
}

func establishmentInsert(e practo.Establishment) sq.InsertBuilder {
	return builder().Insert(tableEstablishments).
		Columns(establishmentColumns...).
		Values(
			e.PractoUUID,
			e.Name,
			e.Slug,
			e.PracticeType,
			e.ProfileURL,
			e.ImageURL,
			e.StreetAddress,
			e.PostalCode,
			e.Locality,
			e.City,
			e.State,
			e.Latitude,
			e.Longitude,
			e.MinPrice,
			e.MaxPrice,
			e.Phone,
			e.PhoneExtension,
			e.Rating,
			e.ReviewsCount,
			e.PracticeTimings,
		).
		Suffix("ON CONFLICT (practo_uuid) DO UPDATE SET " + establishmentUpdateClause)
}

// UpsertDoctors inserts or refreshes doctor rows. The UUID is the sole
// conflict key; every non-identity, non-aggregate column takes the new
// value. Idempotent for identical input.
func (s *Store) UpsertDoctors(ctx context.Context, doctors []practo.Doctor) (BatchResult, error) {
	return s.upsertBatch(ctx, len(doctors),
		func(i int) string { return doctors[i].PractoUUID },
		func(ctx context.Context, tx pgx.Tx, i int) error {
			query, args, err := doctorInsert(doctors[i]).ToSql()
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, query, args...)
			return err
		})
}

// UpsertEstablishments is the establishment counterpart of
// UpsertDoctors.
func (s *Store) UpsertEstablishments(ctx context.Context, establishments []practo.Establishment) (BatchResult, error) {
	return s.upsertBatch(ctx, len(establishments),
		func(i int) string { return establishments[i].PractoUUID },
		func(ctx context.Context, tx pgx.Tx, i int) error {
			query, args, err := establishmentInsert(establishments[i]).ToSql()
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, query, args...)
			return err
		})
}
