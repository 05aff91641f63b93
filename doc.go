// Package docdex provides a Go client for the docdex document search
// service backed by Elasticsearch.
//
// Docdex indexes articles with full-text, vector, geo and structured
// fields, and searches them in four modes: keyword (BM25), semantic
// (approximate KNN over embeddings), hybrid (rank fusion of both) and
// geo (radius from a point).
//
// # Low-level API — the built-in articles index
//
//	client, _ := docdex.New(ctx, docdex.WithAddresses("http://localhost:9200"))
//	defer client.Close()
//
//	client.Articles().Create(ctx, docdex.Article{
//	    ID: "go-generics", Title: "Generics in Go", Content: "...",
//	})
//	page, _ := client.Search().Query(ctx, "generics", &docdex.SearchOptions{
//	    Mode: docdex.ModeKeyword,
//	})
//
// # High-level API — schema-first with Go generics
//
//	type Place struct {
//	    ID      string        `docdex:"id,id"`
//	    Name    string        `docdex:"name,text"`
//	    Country string        `docdex:"country,keyword"`
//	    Spot    docdex.GeoPoint `docdex:"spot,geo"`
//	}
//
//	idx, _ := docdex.NewIndex[Place](client, "places")
//	_ = idx.Ensure(ctx)
//	_ = idx.Put(ctx, Place{ID: "paphos", Name: "Paphos", Country: "CY",
//	    Spot: docdex.GeoPoint{Lat: 34.77, Lon: 32.42}})
//	hits, _ := idx.Search().Near(34.77, 32.42).Within(10_000).Limit(50).Do(ctx)
package docdex
