package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/partymap/partymap/internal/core/domain"
)

const markerColumns = `
	id::text, marker_type, place_name, latitude, longitude, party_time, marker_label,
	website, party_description, party_icon, place_image, party_image, tickets,
	created_at, updated_at`

// MarkerRepo implements ports.MarkerRepository with pgx.
type MarkerRepo struct {
	db *DB
}

// NewMarkerRepo creates a new MarkerRepo.
func NewMarkerRepo(db *DB) *MarkerRepo {
	return &MarkerRepo{db: db}
}

// Create inserts a marker and fills its id and timestamps.
func (r *MarkerRepo) Create(ctx context.Context, m *domain.Marker) error {
	tickets := m.Tickets
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO markers (marker_type, place_name, latitude, longitude, party_time, marker_label,
		                     website, party_description, party_icon, place_image, party_image, tickets)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id::text, created_at, updated_at
	`, m.MarkerType, m.PlaceName, m.Latitude, m.Longitude, string(m.PartyTime), m.MarkerLabel,
		m.Website, m.PartyDescription, m.PartyIcon, m.PlaceImage, m.PartyImage, tickets,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

// GetByID returns a marker by UUID.
func (r *MarkerRepo) GetByID(ctx context.Context, id string) (*domain.Marker, error) {
	id, err := parseID(id)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Pool.Query(ctx, `SELECT `+markerColumns+` FROM markers WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanMarker)
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// List returns a page of markers, newest first, and the total match count.
func (r *MarkerRepo) List(ctx context.Context, f domain.MarkerFilter) ([]domain.Marker, int, error) {
	where := ""
	var args []any
	if f.Search != "" {
		args = append(args, likePattern(f.Search))
		where = ` WHERE (place_name ILIKE $1 OR marker_type ILIKE $1 OR marker_label ILIKE $1)`
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM markers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count markers: %w", err)
	}

	n := len(args)
	args = append(args, f.Limit, f.Offset())
	rows, err := r.db.Pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM markers %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		markerColumns, where, n+1, n+2), args...)
	if err != nil {
		return nil, 0, err
	}
	markers, err := pgx.CollectRows(rows, scanMarker)
	if err != nil {
		return nil, 0, err
	}
	return markers, total, nil
}

// Delete removes a marker. The foreign key clears polygon references; the
// returned count is how many polygons pointed at the marker.
func (r *MarkerRepo) Delete(ctx context.Context, id string) (int64, error) {
	id, err := parseID(id)
	if err != nil {
		return 0, err
	}

	var deleted, detached int64
	err = r.db.InTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`SELECT count(*) FROM polygons WHERE marker_id = $1`, id,
		).Scan(&detached); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM markers WHERE id = $1`, id)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, domain.ErrRecordNotFound
	}
	return detached, nil
}

func scanMarker(row pgx.CollectableRow) (domain.Marker, error) {
	var m domain.Marker
	err := row.Scan(
		&m.ID, &m.MarkerType, &m.PlaceName, &m.Latitude, &m.Longitude, &m.PartyTime, &m.MarkerLabel,
		&m.Website, &m.PartyDescription, &m.PartyIcon, &m.PlaceImage, &m.PartyImage, &m.Tickets,
		&m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}
