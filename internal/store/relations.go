package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/medindex/practo-crawler/internal/practo"
	"github.com/medindex/practo-crawler/internal/relation"
)

const (
	updateDoctorCountsSQL = `UPDATE practo_doctors
SET establishment_count = $1
WHERE practo_uuid = $2`

	updateEstablishmentCountsSQL = `UPDATE practo_establishments
SET doctor_count = $1, number_of_beds = $2, number_of_ambulances = $3
WHERE practo_uuid = $4`

	checkExistenceSQL = `SELECT
EXISTS (SELECT 1 FROM practo_doctors WHERE practo_uuid = $1),
EXISTS (SELECT 1 FROM practo_establishments WHERE practo_uuid = $2)`

	insertEdgeSQL = `INSERT INTO practo_doctor_establishment (
doctor_id, establishment_id, fees, begin_time, end_time, available_days
) VALUES (
(SELECT id FROM practo_doctors WHERE practo_uuid = $1),
(SELECT id FROM practo_establishments WHERE practo_uuid = $2),
$3::text[], $4::time, $5::time, $6::text[]
)`
)

// UpsertRelations writes one profile visit's relation extraction. The
// owner's aggregate-count columns are updated first as their own
// statement; a crash between that update and the edge inserts can leave
// counts without edges (known gap, matches the upstream pipeline). Edge
// inserts are append-only and run under per-edge savepoint isolation, so
// one bad edge is skipped while the rest commit.
func (s *Store) UpsertRelations(
	ctx context.Context,
	ownerID string,
	ownerKind practo.Kind,
	res *relation.Result,
) (BatchResult, error) {
	if res == nil {
		return BatchResult{}, fmt.Errorf("nil relation result")
	}

	var err error
	switch ownerKind {
	case practo.KindDoctor:
		_, err = s.pool.Exec(ctx, updateDoctorCountsSQL, res.CounterpartCount, ownerID)
	case practo.KindHospital, practo.KindClinic:
		_, err = s.pool.Exec(ctx, updateEstablishmentCountsSQL,
			res.CounterpartCount, res.BedCount, res.AmbulanceCount, ownerID)
	default:
		return BatchResult{}, fmt.Errorf("cannot persist relations for kind %q", ownerKind)
	}
	if err != nil {
		return BatchResult{}, fmt.Errorf("update aggregate counts for %s: %w", ownerID, err)
	}

	edges := res.Edges
	return s.upsertBatch(ctx, len(edges),
		func(i int) string {
			return fmt.Sprintf("%s:%s", edges[i].DoctorID, edges[i].EstablishmentID)
		},
		func(ctx context.Context, tx pgx.Tx, i int) error {
			return s.insertEdge(ctx, tx, edges[i])
		})
}

// insertEdge creates a stub row for a missing counterpart before
// appending the edge itself. Stubs are insert-if-absent and never
// refreshed here.
func (s *Store) insertEdge(ctx context.Context, tx pgx.Tx, e relation.Edge) error {
	var doctorExists, establishmentExists bool
	err := tx.QueryRow(ctx, checkExistenceSQL, e.DoctorID, e.EstablishmentID).
		Scan(&doctorExists, &establishmentExists)
	if err != nil {
		return fmt.Errorf("check endpoint existence: %w", err)
	}

	if !doctorExists && e.DoctorStub != nil {
		if err := insertDoctorStub(ctx, tx, e.DoctorStub); err != nil {
			return fmt.Errorf("insert doctor stub: %w", err)
		}
	} else if !establishmentExists && e.EstablishmentStub != nil {
		if err := insertEstablishmentStub(ctx, tx, e.EstablishmentStub); err != nil {
			return fmt.Errorf("insert establishment stub: %w", err)
		}
	}

	fees := []*string{e.FeeAmount.StringPtr(), e.FeeType}
	_, err = tx.Exec(ctx, insertEdgeSQL,
		e.DoctorID, e.EstablishmentID, fees, e.BeginTime, e.EndTime, e.AvailableDays)
	if err != nil {
		return fmt.Errorf("insert edge: %w", err)
	}
	return nil
}

func insertDoctorStub(ctx context.Context, tx pgx.Tx, stub *relation.DoctorStub) error {
	query, args, err := builder().Insert(tableDoctors).
		Columns("practo_uuid", "first_name", "last_name", "profile_photo", "profile_url", "slug", "experience_years").
		Values(stub.PractoUUID, stub.FirstName, stub.LastName, stub.ProfilePhoto, stub.ProfileURL, stub.Slug, stub.ExperienceYears).
		Suffix("ON CONFLICT (practo_uuid) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, query, args...)
	return err
}

func insertEstablishmentStub(ctx context.Context, tx pgx.Tx, stub *relation.EstablishmentStub) error {
	query, args, err := builder().Insert(tableEstablishments).
		Columns("practo_uuid", "name", "slug", "profile_url", "city", "state", "locality", "latitude", "longitude", "street_address").
		Values(stub.PractoUUID, stub.Name, stub.Slug, stub.ProfileURL, stub.City, stub.State, stub.Locality, stub.Latitude, stub.Longitude, stub.StreetAddress).
		Suffix("ON CONFLICT (practo_uuid) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, query, args...)
	return err
}
