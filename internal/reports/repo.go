package reports

import "context"

// Store persists reports. Create always inserts; nothing updates a report.
type Store interface {
	Create(ctx context.Context, report Report) (Report, error)
	Get(ctx context.Context, reportID string) (Report, error)
	ListByUser(ctx context.Context, userID string) ([]Report, error)
	Delete(ctx context.Context, reportID string) (bool, error)
}
