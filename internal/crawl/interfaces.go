package crawl

import (
	"context"
	"time"

	"github.com/medindex/practo-crawler/internal/practo"
	"github.com/medindex/practo-crawler/internal/relation"
	"github.com/medindex/practo-crawler/internal/store"
)

// Fetcher issues retrying HTTP requests.
type Fetcher interface {
	JSON(ctx context.Context, url string, out any) error
	Raw(ctx context.Context, url string) ([]byte, error)
}

// Persister writes canonical records and relation batches.
type Persister interface {
	UpsertDoctors(ctx context.Context, doctors []practo.Doctor) (store.BatchResult, error)
	UpsertEstablishments(ctx context.Context, establishments []practo.Establishment) (store.BatchResult, error)
	UpsertRelations(ctx context.Context, ownerID string, ownerKind practo.Kind, res *relation.Result) (store.BatchResult, error)
}

// Clock abstracts pacing so tests run without real sleeps.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration)
}
