package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/partymap/partymap/internal/adapters/http"
	"github.com/partymap/partymap/internal/core/domain"
	"github.com/partymap/partymap/internal/core/usecases"
	"github.com/partymap/partymap/internal/pkg/geospatial"
)

// ---- Mock repositories ----

type mockPolygonRepo struct {
	mu                sync.Mutex
	createFn          func(ctx context.Context, p *domain.Polygon) error
	createBatchFn     func(ctx context.Context, ps []domain.Polygon) error
	getByIDFn         func(ctx context.Context, id string) (*domain.Polygon, error)
	listFn            func(ctx context.Context, f domain.PolygonFilter) ([]domain.Polygon, int, error)
	listAllFn         func(ctx context.Context, f domain.PolygonFilter) ([]domain.Polygon, error)
	listByMarkerFn    func(ctx context.Context, markerID string) ([]domain.Polygon, error)
	findByPredicateFn func(ctx context.Context, pred geospatial.Predicate) ([]domain.Polygon, error)
	updateFn          func(ctx context.Context, p *domain.Polygon) error
	deleteFn          func(ctx context.Context, id string) error
	deleteAllFn       func(ctx context.Context) (int64, error)
	deleteByIDsFn     func(ctx context.Context, ids []string) (int64, error)
	updated           []string
}

func (m *mockPolygonRepo) Create(ctx context.Context, p *domain.Polygon) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	p.ID = "poly-1"
	return nil
}
func (m *mockPolygonRepo) CreateBatch(ctx context.Context, ps []domain.Polygon) error {
	if m.createBatchFn != nil {
		return m.createBatchFn(ctx, ps)
	}
	return nil
}
func (m *mockPolygonRepo) GetByID(ctx context.Context, id string) (*domain.Polygon, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrRecordNotFound
}
func (m *mockPolygonRepo) List(ctx context.Context, f domain.PolygonFilter) ([]domain.Polygon, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, f)
	}
	return nil, 0, nil
}
func (m *mockPolygonRepo) ListAll(ctx context.Context, f domain.PolygonFilter) ([]domain.Polygon, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx, f)
	}
	return nil, nil
}
func (m *mockPolygonRepo) ListByMarker(ctx context.Context, markerID string) ([]domain.Polygon, error) {
	if m.listByMarkerFn != nil {
		return m.listByMarkerFn(ctx, markerID)
	}
	return nil, nil
}
func (m *mockPolygonRepo) FindByPredicate(ctx context.Context, pred geospatial.Predicate) ([]domain.Polygon, error) {
	if m.findByPredicateFn != nil {
		return m.findByPredicateFn(ctx, pred)
	}
	return nil, nil
}
func (m *mockPolygonRepo) Update(ctx context.Context, p *domain.Polygon) error {
	m.mu.Lock()
	m.updated = append(m.updated, p.ID)
	m.mu.Unlock()
	if m.updateFn != nil {
		return m.updateFn(ctx, p)
	}
	return nil
}
func (m *mockPolygonRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}
func (m *mockPolygonRepo) DeleteAll(ctx context.Context) (int64, error) {
	if m.deleteAllFn != nil {
		return m.deleteAllFn(ctx)
	}
	return 0, nil
}
func (m *mockPolygonRepo) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if m.deleteByIDsFn != nil {
		return m.deleteByIDsFn(ctx, ids)
	}
	return int64(len(ids)), nil
}

type mockMarkerRepo struct {
	createFn  func(ctx context.Context, mk *domain.Marker) error
	getByIDFn func(ctx context.Context, id string) (*domain.Marker, error)
	listFn    func(ctx context.Context, f domain.MarkerFilter) ([]domain.Marker, int, error)
	deleteFn  func(ctx context.Context, id string) (int64, error)
}

func (m *mockMarkerRepo) Create(ctx context.Context, mk *domain.Marker) error {
	if m.createFn != nil {
		return m.createFn(ctx, mk)
	}
	mk.ID = "marker-1"
	return nil
}
func (m *mockMarkerRepo) GetByID(ctx context.Context, id string) (*domain.Marker, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrRecordNotFound
}
func (m *mockMarkerRepo) List(ctx context.Context, f domain.MarkerFilter) ([]domain.Marker, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, f)
	}
	return nil, 0, nil
}
func (m *mockMarkerRepo) Delete(ctx context.Context, id string) (int64, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return 0, nil
}

// ---- Helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New()
	handler.SetupRoutes(app, deps, handler.RouterOptions{})
	return app
}

func makeDeps(polygons *mockPolygonRepo, markers *mockMarkerRepo) *handler.Dependencies {
	if polygons == nil {
		polygons = &mockPolygonRepo{}
	}
	if markers == nil {
		markers = &mockMarkerRepo{}
	}
	return &handler.Dependencies{
		Polygons: usecases.NewPolygonService(polygons, markers, nil, nil, usecases.PolygonOptions{}),
		Markers:  usecases.NewMarkerService(markers, nil, nil, nil),
	}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, []byte, map[string][]string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return resp.StatusCode, readBody(t, resp.Body), resp.Header
}

func decodeError(t *testing.T, body []byte) handler.APIError {
	t.Helper()
	var apiErr handler.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatalf("unmarshal error body %s: %v", body, err)
	}
	return apiErr
}

func unitSquare() geospatial.Rings {
	return geospatial.Rings{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
}

func storedPolygon(id string) *domain.Polygon {
	p := domain.NewPolygon(domain.PolygonInput{Name: "Stage " + id})
	p.ID = id
	p.Geometry = geospatial.NewGeometry(unitSquare())
	return &p
}

func knownMarker(id string) *domain.Marker {
	return &domain.Marker{
		ID:          id,
		MarkerType:  "club",
		PlaceName:   "Warehouse",
		Latitude:    52.5,
		Longitude:   13.4,
		PartyTime:   domain.PartyNight,
		MarkerLabel: "W",
	}
}

const squareBody = `{"name":"Main stage","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}`

// ---- Polygon tests ----

func TestCreatePolygon_Success(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	status, body, headers := doJSON(t, app, "POST", "/v1/polygons", squareBody)
	if status != 201 {
		t.Fatalf("expected 201, got %d: %s", status, body)
	}
	if _, ok := headers["Deprecation"]; ok {
		t.Error("canonical geometry should not be marked deprecated")
	}

	var p map[string]any
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p["id"] != "poly-1" {
		t.Errorf("expected id poly-1, got %v", p["id"])
	}
	if p["polygonType"] != "building" {
		t.Errorf("expected default type building, got %v", p["polygonType"])
	}
	if p["coordinateCount"] != 5.0 {
		t.Errorf("expected coordinateCount 5, got %v", p["coordinateCount"])
	}
	if area, ok := p["area"].(float64); !ok || area <= 0 {
		t.Errorf("expected positive area, got %v", p["area"])
	}
}

func TestCreatePolygon_LegacyGeometryIsDeprecated(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	body := `{"name":"Old client","geometry":{"outerRing":{"coordinates":[
		{"longitude":0,"latitude":0},{"longitude":1,"latitude":0},
		{"longitude":1,"latitude":1},{"longitude":0,"latitude":0}]}}}`
	status, resp, headers := doJSON(t, app, "POST", "/v1/polygons", body)
	if status != 201 {
		t.Fatalf("expected 201, got %d: %s", status, resp)
	}
	if got := strings.Join(headers["Deprecation"], ""); got != "true" {
		t.Errorf("expected Deprecation: true, got %q", got)
	}
	if len(headers["Warning"]) == 0 || len(headers["Sunset"]) == 0 {
		t.Errorf("expected Warning and Sunset headers, got %v", headers)
	}
}

func TestCreatePolygon_InvalidGeometry(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	// Ring is not closed.
	body := `{"name":"Open","geometry":{"coordinates":[[[0,0],[1,0],[1,1],[0,1]]]}}`
	status, resp, _ := doJSON(t, app, "POST", "/v1/polygons", body)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	if apiErr := decodeError(t, resp); apiErr.Code != "invalid_geometry" {
		t.Errorf("expected invalid_geometry, got %q (%s)", apiErr.Code, apiErr.Message)
	}
}

func TestCreatePolygon_MalformedGeometry(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	status, resp, _ := doJSON(t, app, "POST", "/v1/polygons", `{"name":"x","geometry":{"points":[]}}`)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	if apiErr := decodeError(t, resp); apiErr.Code != "invalid_geometry_format" {
		t.Errorf("expected invalid_geometry_format, got %q", apiErr.Code)
	}
}

func TestCreatePolygon_NestedPropertyRejected(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	body := `{"name":"x","properties":{"nested":{"a":1}},"geometry":{"coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}`
	status, resp, _ := doJSON(t, app, "POST", "/v1/polygons", body)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	if apiErr := decodeError(t, resp); apiErr.Code != "invalid_property" {
		t.Errorf("expected invalid_property, got %q", apiErr.Code)
	}
}

func TestCreatePolygon_FieldRules(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	body := `{"name":"x","style":{"fillColor":"blue"},"geometry":{"coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}`
	status, resp, _ := doJSON(t, app, "POST", "/v1/polygons", body)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	apiErr := decodeError(t, resp)
	if apiErr.Code != "invalid_polygon" || !strings.Contains(apiErr.Message, "fillColor") {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestCreatePolygon_UnknownMarker(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	body := `{"name":"x","marker":"missing","geometry":{"coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}`
	status, resp, _ := doJSON(t, app, "POST", "/v1/polygons", body)
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
	if apiErr := decodeError(t, resp); apiErr.Code != "marker_not_found" {
		t.Errorf("expected marker_not_found, got %q", apiErr.Code)
	}
}

func TestCreatePolygon_BadJSON(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	status, _, _ := doJSON(t, app, "POST", "/v1/polygons", `{"name":`)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
}

func TestListPolygons_Pagination(t *testing.T) {
	var got domain.PolygonFilter
	repo := &mockPolygonRepo{
		listFn: func(_ context.Context, f domain.PolygonFilter) ([]domain.Polygon, int, error) {
			got = f
			return []domain.Polygon{*storedPolygon("a"), *storedPolygon("b")}, 25, nil
		},
	}
	app := setupApp(makeDeps(repo, nil))

	status, body, headers := doJSON(t, app, "GET", "/v1/polygons?page=2&limit=10&search=stage&type=venue&visible=true", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if got.Page != 2 || got.Limit != 10 || got.Search != "stage" || got.Type != domain.PolygonVenue {
		t.Errorf("unexpected filter %+v", got)
	}
	if got.Visible == nil || !*got.Visible {
		t.Error("expected visible filter")
	}

	var resp struct {
		Data []map[string]any `json:"data"`
		Meta handler.PageMeta `json:"meta"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Errorf("expected 2 items, got %d", len(resp.Data))
	}
	if resp.Meta.CurrentPage != 2 || resp.Meta.TotalRecords != 25 || resp.Meta.TotalPages != 3 {
		t.Errorf("unexpected meta %+v", resp.Meta)
	}

	link := strings.Join(headers["Link"], ",")
	if !strings.Contains(link, `page=3&limit=10`) || !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected next link to page 3, got %q", link)
	}
}

func TestListPolygons_EmptyIsArray(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	status, body, _ := doJSON(t, app, "GET", "/v1/polygons", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `"data":[]`) {
		t.Errorf("expected empty data array, got %s", body)
	}
}

func TestGetPolygon_Success(t *testing.T) {
	repo := &mockPolygonRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Polygon, error) {
			return storedPolygon(id), nil
		},
	}
	app := setupApp(makeDeps(repo, nil))

	status, body, _ := doJSON(t, app, "GET", "/v1/polygons/abc", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var p domain.Polygon
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.ID != "abc" || p.Area == nil || p.PointCount != 5 {
		t.Errorf("unexpected polygon %+v", p)
	}
}

func TestGetPolygon_NotFound(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	status, body, _ := doJSON(t, app, "GET", "/v1/polygons/nope", "")
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
	if apiErr := decodeError(t, body); apiErr.Status != 404 || apiErr.Code != "not_found" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestGeoJSON_DefaultsToVisible(t *testing.T) {
	var got domain.PolygonFilter
	repo := &mockPolygonRepo{
		listAllFn: func(_ context.Context, f domain.PolygonFilter) ([]domain.Polygon, error) {
			got = f
			return []domain.Polygon{*storedPolygon("a")}, nil
		},
	}
	app := setupApp(makeDeps(repo, nil))

	req := httptest.NewRequest("GET", "/v1/polygons/geojson", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("expected geo+json content type, got %q", ct)
	}
	if got.Visible == nil || !*got.Visible {
		t.Error("expected export to default to visible polygons")
	}

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID         string         `json:"id"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &fc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 1 || fc.Features[0].ID != "a" {
		t.Errorf("unexpected collection %+v", fc)
	}
}

func TestBulkCreate_ItemErrorNamesIndex(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	body := `{"polygons":[` + squareBody + `,{"name":"bad","geometry":{"coordinates":[[[0,0],[1,0]]]}}]}`
	status, resp, _ := doJSON(t, app, "POST", "/v1/polygons/bulk", body)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	if apiErr := decodeError(t, resp); !strings.HasPrefix(apiErr.Message, "item 1:") {
		t.Errorf("expected message to name item 1, got %q", apiErr.Message)
	}
}

func TestBulkCreate_Success(t *testing.T) {
	repo := &mockPolygonRepo{
		createBatchFn: func(_ context.Context, ps []domain.Polygon) error {
			for i := range ps {
				ps[i].ID = string(rune('a' + i))
			}
			return nil
		},
	}
	app := setupApp(makeDeps(repo, nil))

	status, resp, _ := doJSON(t, app, "POST", "/v1/polygons/bulk", `{"polygons":[`+squareBody+`,`+squareBody+`]}`)
	if status != 201 {
		t.Fatalf("expected 201, got %d: %s", status, resp)
	}
	var polys []domain.Polygon
	if err := json.Unmarshal(resp, &polys); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(polys) != 2 || polys[1].ID != "b" {
		t.Errorf("unexpected polygons %+v", polys)
	}
}

func TestBulkDelete(t *testing.T) {
	repo := &mockPolygonRepo{
		deleteByIDsFn: func(_ context.Context, ids []string) (int64, error) {
			return 1, nil
		},
	}
	app := setupApp(makeDeps(repo, nil))

	status, body, _ := doJSON(t, app, "POST", "/v1/polygons/delete-multiple", `{"ids":["a","b"]}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var resp struct {
		DeletedIDs   []string `json:"deletedIds"`
		DeletedCount int      `json:"deletedCount"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.DeletedCount != 1 || len(resp.DeletedIDs) != 2 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestBulkDelete_EmptyIDs(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	status, body, _ := doJSON(t, app, "POST", "/v1/polygons/delete-multiple", `{"ids":[]}`)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	if apiErr := decodeError(t, body); apiErr.Code != "empty_selection" {
		t.Errorf("expected empty_selection, got %q", apiErr.Code)
	}
}

func TestBulkUpdate(t *testing.T) {
	repo := &mockPolygonRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Polygon, error) {
			if id == "missing" {
				return nil, domain.ErrRecordNotFound
			}
			return storedPolygon(id), nil
		},
	}
	app := setupApp(makeDeps(repo, nil))

	body := `{"ids":["a","b","missing"],"updateData":{"isVisible":false,"style":{"fillColor":"#F00"}}}`
	status, resp, _ := doJSON(t, app, "PUT", "/v1/polygons/bulk-update", body)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, resp)
	}
	if !strings.Contains(string(resp), `"updatedCount":2`) {
		t.Errorf("expected updatedCount 2, got %s", resp)
	}
}

func TestBulkUpdate_PartialFailureReportsCount(t *testing.T) {
	repo := &mockPolygonRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Polygon, error) {
			return storedPolygon(id), nil
		},
		updateFn: func(_ context.Context, p *domain.Polygon) error {
			if p.ID == "b" {
				return errors.New("connection reset")
			}
			return nil
		},
	}
	app := setupApp(makeDeps(repo, nil))

	status, resp, _ := doJSON(t, app, "PUT", "/v1/polygons/bulk-update", `{"ids":["a","b"],"updateData":{"name":"renamed"}}`)
	if status != 500 {
		t.Fatalf("expected 500, got %d: %s", status, resp)
	}
	var body struct {
		Code         string `json:"code"`
		UpdatedCount int64  `json:"updatedCount"`
	}
	if err := json.Unmarshal(resp, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Code != "internal_error" || body.UpdatedCount != 1 {
		t.Errorf("expected internal_error with updatedCount 1, got %s", resp)
	}
}

func TestWithinBounds_MissingSide(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	status, body, _ := doJSON(t, app, "POST", "/v1/polygons/within-bounds", `{"bounds":{"north":1,"south":0,"east":1}}`)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	if apiErr := decodeError(t, body); apiErr.Code != "invalid_bounds" {
		t.Errorf("expected invalid_bounds, got %q", apiErr.Code)
	}
}

func TestWithinBounds_Success(t *testing.T) {
	var op geospatial.PredicateOp
	repo := &mockPolygonRepo{
		findByPredicateFn: func(_ context.Context, pred geospatial.Predicate) ([]domain.Polygon, error) {
			op = pred.Op
			return []domain.Polygon{*storedPolygon("a")}, nil
		},
	}
	app := setupApp(makeDeps(repo, nil))

	status, _, _ := doJSON(t, app, "POST", "/v1/polygons/within-bounds", `{"bounds":{"north":2,"south":-1,"east":2,"west":-1}}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if op != geospatial.OpWithin {
		t.Errorf("expected within predicate, got %q", op)
	}
}

func TestIntersects(t *testing.T) {
	var op geospatial.PredicateOp
	repo := &mockPolygonRepo{
		findByPredicateFn: func(_ context.Context, pred geospatial.Predicate) ([]domain.Polygon, error) {
			op = pred.Op
			return nil, nil
		},
	}
	app := setupApp(makeDeps(repo, nil))

	status, body, _ := doJSON(t, app, "POST", "/v1/polygons/intersects", `{"geometry":{"type":"Point","coordinates":[0.5,0.5]}}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if op != geospatial.OpIntersects {
		t.Errorf("expected intersects predicate, got %q", op)
	}
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}

	status, body, _ = doJSON(t, app, "POST", "/v1/polygons/intersects", `{}`)
	if status != 400 {
		t.Fatalf("expected 400 for missing geometry, got %d", status)
	}
	if apiErr := decodeError(t, body); apiErr.Code != "invalid_geometry_input" {
		t.Errorf("expected invalid_geometry_input, got %q", apiErr.Code)
	}
}

func TestSimplified_NegativeTolerance(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	status, _, _ := doJSON(t, app, "GET", "/v1/polygons/a/simplified?tolerance=-1", "")
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
}

func TestSimplified_ExplicitZeroTolerance(t *testing.T) {
	repo := &mockPolygonRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Polygon, error) {
			p := storedPolygon(id)
			p.Geometry = geospatial.NewGeometry(geospatial.Rings{{
				{0, 0}, {0.5, 0.00001}, {1, 0}, {1, 1}, {0, 1}, {0, 0},
			}})
			return p, nil
		},
	}
	app := setupApp(makeDeps(repo, nil))

	for path, want := range map[string]int{
		"/v1/polygons/a/simplified":             5,
		"/v1/polygons/a/simplified?tolerance=0": 6,
	} {
		status, body, _ := doJSON(t, app, "GET", path, "")
		if status != 200 {
			t.Fatalf("%s: expected 200, got %d: %s", path, status, body)
		}
		var p domain.Polygon
		if err := json.Unmarshal(body, &p); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if p.PointCount != want {
			t.Errorf("%s: expected %d points, got %d", path, want, p.PointCount)
		}
	}
}

func TestUpdatePolygon_NullMarker(t *testing.T) {
	repo := &mockPolygonRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Polygon, error) {
			p := storedPolygon(id)
			mid := "m1"
			p.MarkerID = &mid
			p.Marker = knownMarker(mid).Summary()
			return p, nil
		},
	}
	app := setupApp(makeDeps(repo, nil))

	status, body, _ := doJSON(t, app, "PUT", "/v1/polygons/a", `{"marker":null,"name":"Renamed"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var p map[string]any
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p["marker"] != nil || p["name"] != "Renamed" {
		t.Errorf("unexpected polygon %v", p)
	}
}

func TestAssociateMarker(t *testing.T) {
	repo := &mockPolygonRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Polygon, error) {
			return storedPolygon(id), nil
		},
	}
	markers := &mockMarkerRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Marker, error) {
			return knownMarker(id), nil
		},
	}
	app := setupApp(makeDeps(repo, markers))

	status, body, _ := doJSON(t, app, "POST", "/v1/polygons/a/associate-marker", `{"markerId":"m1"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if !strings.Contains(string(body), `"placeName":"Warehouse"`) {
		t.Errorf("expected marker summary in response, got %s", body)
	}

	status, _, _ = doJSON(t, app, "DELETE", "/v1/polygons/a/dissociate-marker", "")
	if status != 200 {
		t.Fatalf("expected 200 on dissociate, got %d", status)
	}
}

func TestMarkerPolygons_UnknownMarker(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	status, _, _ := doJSON(t, app, "GET", "/v1/polygons/marker/nope", "")
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestDeleteAllPolygons(t *testing.T) {
	repo := &mockPolygonRepo{
		deleteAllFn: func(context.Context) (int64, error) { return 7, nil },
	}
	app := setupApp(makeDeps(repo, nil))

	status, body, _ := doJSON(t, app, "DELETE", "/v1/polygons", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `"deletedCount":7`) {
		t.Errorf("unexpected body %s", body)
	}
}

// ---- Marker tests ----

func TestCreateMarker(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	body := `{"markerType":"club","placeName":"Warehouse","latitude":52.5,"longitude":13.4,"partyTime":"night","markerLabel":"W"}`
	status, resp, _ := doJSON(t, app, "POST", "/v1/markers", body)
	if status != 201 {
		t.Fatalf("expected 201, got %d: %s", status, resp)
	}

	status, resp, _ = doJSON(t, app, "POST", "/v1/markers", `{"markerType":"club","latitude":120}`)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	if apiErr := decodeError(t, resp); apiErr.Code != "invalid_marker" {
		t.Errorf("expected invalid_marker, got %q", apiErr.Code)
	}
}

func TestListMarkers(t *testing.T) {
	markers := &mockMarkerRepo{
		listFn: func(_ context.Context, f domain.MarkerFilter) ([]domain.Marker, int, error) {
			return []domain.Marker{*knownMarker("m1")}, 1, nil
		},
	}
	app := setupApp(makeDeps(nil, markers))

	status, body, _ := doJSON(t, app, "GET", "/v1/markers?limit=500", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `"limit":100`) {
		t.Errorf("expected limit clamped to 100, got %s", body)
	}
}

func TestDeleteMarker_NotFound(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	status, _, _ := doJSON(t, app, "DELETE", "/v1/markers/nope", "")
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
}

// ---- Infrastructure ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	status, body, _ := doJSON(t, app, "GET", "/v1/health", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `"status":"healthy"`) {
		t.Errorf("unexpected body %s", body)
	}
}

func TestReady_NoDB(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	status, _, _ := doJSON(t, app, "GET", "/v1/ready", "")
	if status != 503 {
		t.Fatalf("expected 503 without a database, got %d", status)
	}
}

func TestReady_ReportsOptionalBackends(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	_, body, _ := doJSON(t, app, "GET", "/v1/ready", "")
	for _, want := range []string{`"database":"not configured"`, `"nats":"not configured"`, `"cache":"not configured"`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %s in %s", want, body)
		}
	}
}

func TestDocs_ServesParsedDocument(t *testing.T) {
	app := fiber.New()
	handler.SetupRoutes(app, makeDeps(nil, nil), handler.RouterOptions{SpecPath: "../../../api/openapi.yaml"})

	status, body, _ := doJSON(t, app, "GET", "/docs/openapi.json", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if !strings.Contains(string(body), `"title":"PartyMap API"`) {
		t.Errorf("expected document title in %s", body)
	}

	status, _, _ = doJSON(t, setupApp(makeDeps(nil, nil)), "GET", "/docs/openapi.json", "")
	if status != 404 {
		t.Errorf("expected 404 when the document is missing, got %d", status)
	}
}

func TestETag_NotModified(t *testing.T) {
	repo := &mockPolygonRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Polygon, error) {
			return storedPolygon(id), nil
		},
	}
	app := setupApp(makeDeps(repo, nil))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/polygons/a", nil), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}

	req := httptest.NewRequest("GET", "/v1/polygons/a", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

func TestGraphQL_Polygon(t *testing.T) {
	repo := &mockPolygonRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Polygon, error) {
			return storedPolygon(id), nil
		},
	}
	app := setupApp(makeDeps(repo, nil))

	status, body, _ := doJSON(t, app, "POST", "/graphql",
		`{"query":"{ polygon(id: \"a\") { id name coordinateCount style { fillColor } geometry } }"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	var resp struct {
		Data struct {
			Polygon struct {
				ID              string `json:"id"`
				Name            string `json:"name"`
				CoordinateCount int    `json:"coordinateCount"`
				Style           struct {
					FillColor string `json:"fillColor"`
				} `json:"style"`
				Geometry struct {
					Type string `json:"type"`
				} `json:"geometry"`
			} `json:"polygon"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", resp.Errors)
	}
	got := resp.Data.Polygon
	if got.ID != "a" || got.CoordinateCount != 5 || got.Style.FillColor != domain.DefaultFillColor || got.Geometry.Type != "Polygon" {
		t.Errorf("unexpected polygon %+v", got)
	}
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	status, _, _ := doJSON(t, app, "GET", "/ws", "")
	if status != 426 {
		t.Errorf("expected 426 Upgrade Required, got %d", status)
	}
}
