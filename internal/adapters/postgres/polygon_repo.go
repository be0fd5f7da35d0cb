package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/partymap/partymap/internal/core/domain"
	"github.com/partymap/partymap/internal/pkg/geospatial"
)

const polygonColumns = `
	p.id::text, p.name, p.description, p.polygon_type,
	ST_AsGeoJSON(p.geometry, 15), p.style, p.extrusion,
	p.marker_id::text, m.place_name, m.marker_type, m.latitude, m.longitude,
	p.properties, p.is_visible, p.is_interactive, p.min_zoom, p.max_zoom,
	p.created_at, p.updated_at`

const polygonFrom = `
	FROM polygons p
	LEFT JOIN markers m ON m.id = p.marker_id`

const insertPolygon = `
	INSERT INTO polygons (name, description, polygon_type, geometry, style, extrusion,
	                      marker_id, properties, is_visible, is_interactive, min_zoom, max_zoom)
	VALUES ($1, $2, $3, ST_SetSRID(ST_GeomFromGeoJSON($4), 4326), $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING id::text, created_at, updated_at`

// PolygonRepo implements ports.PolygonRepository with pgx and PostGIS.
type PolygonRepo struct {
	db *DB
}

// NewPolygonRepo creates a new PolygonRepo.
func NewPolygonRepo(db *DB) *PolygonRepo {
	return &PolygonRepo{db: db}
}

// Create inserts a polygon and fills its id and timestamps.
func (r *PolygonRepo) Create(ctx context.Context, p *domain.Polygon) error {
	args, err := insertArgs(p)
	if err != nil {
		return err
	}
	return r.db.Pool.QueryRow(ctx, insertPolygon, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// CreateBatch inserts every polygon in one transaction using pgx.Batch.
func (r *PolygonRepo) CreateBatch(ctx context.Context, ps []domain.Polygon) error {
	if len(ps) == 0 {
		return nil
	}
	return r.db.InTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i := range ps {
			args, err := insertArgs(&ps[i])
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			batch.Queue(insertPolygon, args...)
		}

		br := tx.SendBatch(ctx, batch)
		for i := range ps {
			if err := br.QueryRow().Scan(&ps[i].ID, &ps[i].CreatedAt, &ps[i].UpdatedAt); err != nil {
				_ = br.Close()
				return fmt.Errorf("batch insert %d: %w", i, err)
			}
		}
		return br.Close()
	})
}

// GetByID returns a polygon with its marker summary.
func (r *PolygonRepo) GetByID(ctx context.Context, id string) (*domain.Polygon, error) {
	id, err := parseID(id)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Pool.Query(ctx, `SELECT `+polygonColumns+polygonFrom+` WHERE p.id = $1`, id)
	if err != nil {
		return nil, err
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPolygon)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// List returns a page of polygons, newest first, and the total match count.
func (r *PolygonRepo) List(ctx context.Context, f domain.PolygonFilter) ([]domain.Polygon, int, error) {
	where, args := polygonWhere(f)

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM polygons p`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count polygons: %w", err)
	}

	n := len(args)
	args = append(args, f.Limit, f.Offset())
	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d`,
		polygonColumns, polygonFrom, where, n+1, n+2)

	polys, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return polys, total, nil
}

// ListAll returns every polygon matching the filter, newest first.
func (r *PolygonRepo) ListAll(ctx context.Context, f domain.PolygonFilter) ([]domain.Polygon, error) {
	where, args := polygonWhere(f)
	return r.query(ctx, `SELECT `+polygonColumns+polygonFrom+where+` ORDER BY p.created_at DESC`, args...)
}

// ListByMarker returns the polygons referencing a marker.
func (r *PolygonRepo) ListByMarker(ctx context.Context, markerID string) ([]domain.Polygon, error) {
	markerID, err := parseID(markerID)
	if err != nil {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+polygonColumns+polygonFrom+
		` WHERE p.marker_id = $1 ORDER BY p.created_at DESC`, markerID)
}

// FindByPredicate evaluates a spatial predicate in PostGIS.
func (r *PolygonRepo) FindByPredicate(ctx context.Context, pred geospatial.Predicate) ([]domain.Polygon, error) {
	var fn string
	switch pred.Op {
	case geospatial.OpWithin:
		fn = "ST_Within"
	case geospatial.OpIntersects:
		fn = "ST_Intersects"
	default:
		return nil, fmt.Errorf("%w: unsupported predicate %q", domain.ErrInvalidGeometryInput, pred.Op)
	}
	geom, err := pred.GeoJSON()
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + polygonColumns + polygonFrom +
		` WHERE ` + fn + `(p.geometry, ST_SetSRID(ST_GeomFromGeoJSON($1), 4326))` +
		` ORDER BY p.created_at DESC`
	return r.query(ctx, query, string(geom))
}

// Update writes every column of the record.
func (r *PolygonRepo) Update(ctx context.Context, p *domain.Polygon) error {
	id, err := parseID(p.ID)
	if err != nil {
		return err
	}
	args, err := insertArgs(p)
	if err != nil {
		return err
	}
	args = append(args, id)

	err = r.db.Pool.QueryRow(ctx, `
		UPDATE polygons
		SET name = $1, description = $2, polygon_type = $3,
		    geometry = ST_SetSRID(ST_GeomFromGeoJSON($4), 4326),
		    style = $5, extrusion = $6, marker_id = $7, properties = $8,
		    is_visible = $9, is_interactive = $10, min_zoom = $11, max_zoom = $12,
		    updated_at = now()
		WHERE id = $13
		RETURNING created_at, updated_at
	`, args...).Scan(&p.CreatedAt, &p.UpdatedAt)
	return notFound(err)
}

// Delete removes a polygon.
func (r *PolygonRepo) Delete(ctx context.Context, id string) error {
	id, err := parseID(id)
	if err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM polygons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// DeleteAll removes every polygon.
func (r *PolygonRepo) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM polygons`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteByIDs removes the listed polygons in one statement.
func (r *PolygonRepo) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM polygons WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PolygonRepo) query(ctx context.Context, sql string, args ...any) ([]domain.Polygon, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	polys, err := pgx.CollectRows(rows, scanPolygon)
	if err != nil {
		return nil, err
	}
	return polys, nil
}

// polygonWhere renders the filter as a WHERE clause with positional args.
func polygonWhere(f domain.PolygonFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Search != "" {
		args = append(args, likePattern(f.Search))
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(p.name ILIKE $%d OR p.description ILIKE $%d OR p.polygon_type ILIKE $%d)", n, n, n))
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		conds = append(conds, fmt.Sprintf("p.polygon_type = $%d", len(args)))
	}
	if f.Visible != nil {
		args = append(args, *f.Visible)
		conds = append(conds, fmt.Sprintf("p.is_visible = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func insertArgs(p *domain.Polygon) ([]any, error) {
	geom, err := json.Marshal(p.Geometry)
	if err != nil {
		return nil, fmt.Errorf("encode geometry: %w", err)
	}
	props := p.Properties
	if props == nil {
		props = domain.Properties{}
	}
	propsJSON, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("encode properties: %w", err)
	}
	return []any{
		p.Name, p.Description, string(p.PolygonType), string(geom),
		p.Style, p.Extrusion, p.MarkerID, propsJSON,
		p.IsVisible, p.IsInteractive, p.MinZoom, p.MaxZoom,
	}, nil
}

func scanPolygon(row pgx.CollectableRow) (domain.Polygon, error) {
	var (
		p          domain.Polygon
		geom       []byte
		markerID   *string
		placeName  *string
		markerType *string
		lat, lng   *float64
		props      []byte
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.PolygonType,
		&geom, &p.Style, &p.Extrusion,
		&markerID, &placeName, &markerType, &lat, &lng,
		&props, &p.IsVisible, &p.IsInteractive, &p.MinZoom, &p.MaxZoom,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}

	if err := json.Unmarshal(geom, &p.Geometry); err != nil {
		return p, fmt.Errorf("decode geometry of %s: %w", p.ID, err)
	}
	p.Properties = domain.Properties{}
	if len(props) > 0 {
		if err := json.Unmarshal(props, &p.Properties); err != nil {
			return p, fmt.Errorf("decode properties of %s: %w", p.ID, err)
		}
	}

	if markerID != nil {
		p.MarkerID = markerID
		if placeName != nil {
			p.Marker = &domain.MarkerSummary{
				ID:         *markerID,
				PlaceName:  *placeName,
				MarkerType: deref(markerType),
				Latitude:   derefFloat(lat),
				Longitude:  derefFloat(lng),
			}
		}
	}
	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
