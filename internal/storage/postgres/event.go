package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cauth/cauth/internal/domain"
	"github.com/cauth/cauth/internal/storage"
)

// EventRepository implements storage.EventRepository using an auto
// incrementing events.id as the monotonic, non-gap-free sequence §5 allows.
type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) Create(ctx context.Context, event *domain.PendingEvent) error {
	db := getDB(ctx, r.pool)

	event.Status = domain.EventPending
	event.CreatedAt = time.Now().UTC()

	return mapError(db.QueryRow(ctx, `
		INSERT INTO events (type, payload, status, created_at, created_by_login)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		event.Type, event.Payload, event.Status, event.CreatedAt, event.CreatedByLogin,
	).Scan(&event.ID))
}

func (r *EventRepository) Retrieve(ctx context.Context, id int64) (*domain.PendingEvent, error) {
	db := getDB(ctx, r.pool)
	return r.scan(db.QueryRow(ctx, `
		SELECT id, type, payload, status, created_at, created_by_login
		FROM events WHERE id = $1`, id))
}

func (r *EventRepository) List(ctx context.Context, page storage.ListPage) ([]domain.PendingEvent, error) {
	db := getDB(ctx, r.pool)

	order := "ASC"
	if page.Order == "desc" {
		order = "DESC"
	}
	limit, offset := clampPage(page)

	rows, err := db.Query(ctx, `
		SELECT id, type, payload, status, created_at, created_by_login
		FROM events WHERE status = $3 ORDER BY id `+order+`
		LIMIT $1 OFFSET $2`, limit, offset, domain.EventPending)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var events []domain.PendingEvent
	for rows.Next() {
		e, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// RetrieveForUpdate loads the event row under SELECT ... FOR UPDATE so
// concurrent commits of the same event are serialized (§5). Must be called
// within a transaction opened by Transactor.WithTransaction.
func (r *EventRepository) RetrieveForUpdate(ctx context.Context, id int64) (*domain.PendingEvent, error) {
	db := getDB(ctx, r.pool)
	return r.scan(db.QueryRow(ctx, `
		SELECT id, type, payload, status, created_at, created_by_login
		FROM events WHERE id = $1 FOR UPDATE`, id))
}

func (r *EventRepository) UpdateStatus(ctx context.Context, id int64, status domain.EventStatus) error {
	db := getDB(ctx, r.pool)

	result, err := db.Exec(ctx, `UPDATE events SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return mapError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *EventRepository) scan(row scannable) (*domain.PendingEvent, error) {
	var e domain.PendingEvent
	if err := row.Scan(&e.ID, &e.Type, &e.Payload, &e.Status, &e.CreatedAt, &e.CreatedByLogin); err != nil {
		return nil, mapError(err)
	}
	return &e, nil
}
