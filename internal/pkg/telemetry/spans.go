package telemetry

// Span names for service operations.
const (
	SpanPolygonCreate     = "polygon.create"
	SpanPolygonUpdate     = "polygon.update"
	SpanPolygonDelete     = "polygon.delete"
	SpanPolygonBulkCreate = "polygon.bulk_create"
	SpanPolygonBulkUpdate = "polygon.bulk_update"
	SpanPolygonBulkDelete = "polygon.bulk_delete"
	SpanPolygonQuery      = "polygon.spatial_query"
	SpanPolygonExport     = "polygon.export_geojson"
	SpanMarkerDelete      = "marker.delete"
)

// Span attribute keys.
const (
	AttrPolygonID   = "polygon.id"
	AttrMarkerID    = "marker.id"
	AttrBatchSize   = "batch.size"
	AttrPredicateOp = "geo.predicate"
	AttrInputShape  = "geo.input_shape"
)
