package article

import "github.com/kailas-cloud/docdex/internal/db"

// buildMapping creates the articles index definition.
func buildMapping(shards, replicas, vectorDims int) *db.Mapping {
	return &db.Mapping{
		Shards:   shards,
		Replicas: replicas,
		Fields: []db.MappingField{
			{Name: "title", Type: db.FieldText},
			{Name: "content", Type: db.FieldText},
			{Name: "author", Type: db.FieldKeyword},
			{Name: "category", Type: db.FieldKeyword},
			{Name: "tags", Type: db.FieldKeyword},
			{Name: "views", Type: db.FieldInteger},
			{Name: "rating", Type: db.FieldFloat},
			{Name: "source", Type: db.FieldKeyword},
			{Name: "location", Type: db.FieldGeoPoint},
			{Name: "title_vector", Type: db.FieldDenseVector, VectorDims: vectorDims},
			{Name: "created_at", Type: db.FieldDate},
			{Name: "updated_at", Type: db.FieldDate},
		},
	}
}
