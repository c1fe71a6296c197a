package holiday

import "context"

// Source fetches the holidays of one calendar year in one jurisdiction.
// Implementations return raw errors; the Cache turns them into
// *generic.HolidayLookupError.
type Source interface {
	Fetch(ctx context.Context, year int, jurisdiction string) ([]Holiday, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, year int, jurisdiction string) ([]Holiday, error)

func (f SourceFunc) Fetch(ctx context.Context, year int, jurisdiction string) ([]Holiday, error) {
	return f(ctx, year, jurisdiction)
}
