// Package db is the Elasticsearch place catalog. It answers the same text
// searches as the Google backend from locally imported data.
package db

import (
	"context"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/honeycombio/beeline-go"
	"github.com/olivere/elastic/v7"
	"github.com/rs/zerolog/log"

	"YakinikuMap/src/places"
	"YakinikuMap/src/types"
)

//go:embed schema.json
var schema string

const maxResults = 20

type placeDoc struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Address     string           `json:"address"`
	Phone       string           `json:"phone,omitempty"`
	Location    elastic.GeoPoint `json:"location"`
	Rating      float64          `json:"rating,omitempty"`
	RatingCount int              `json:"rating_count,omitempty"`
	Photos      []string         `json:"photos,omitempty"`
}

type ElasticStore struct {
	url   string
	Index string

	// extra options for elastic.NewClient
	opts []elastic.ClientOptionFunc

	mu     sync.Mutex
	client *elastic.Client
}

// NewElasticStore does not contact the cluster; the client is created on
// first use.
func NewElasticStore(url, index string) *ElasticStore {
	return &ElasticStore{url: url, Index: index}
}

// Client returns the cached client, connecting first if there is none yet.
// A failed connect is not cached, so the next call tries again.
func (es *ElasticStore) Client() (*elastic.Client, error) {
	es.mu.Lock()
	defer es.mu.Unlock()
	if es.client != nil {
		return es.client, nil
	}

	opts := append([]elastic.ClientOptionFunc{elastic.SetURL(es.url), elastic.SetSniff(false)}, es.opts...)
	client, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, &places.SetupError{Err: fmt.Errorf("create elasticsearch client: %w", err)}
	}
	es.client = client
	return client, nil
}

func (es *ElasticStore) Stop() {
	es.mu.Lock()
	defer es.mu.Unlock()
	if es.client != nil {
		es.client.Stop()
		es.client = nil
	}
}

func (es *ElasticStore) TextSearch(ctx context.Context, q types.TextQuery) ([]types.PlaceResult, types.Status, error) {
	ctx, span := beeline.StartSpan(ctx, "elastic.text_search")
	defer span.Send()

	client, err := es.Client()
	if err != nil {
		return nil, "", err
	}

	searchResult, err := client.Search().
		Index(es.Index).
		Query(textQuery(q)).
		Size(maxResults).
		Do(ctx)
	if err != nil {
		span.AddField("error", err)
		status := statusFromError(err)
		log.Debug().Err(err).Str("status", string(status)).Msg("elasticsearch search failed")
		return nil, status, nil
	}

	var results []types.PlaceResult
	for _, hit := range searchResult.Hits.Hits {
		var doc placeDoc
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			log.Warn().Err(err).Str("id", hit.Id).Msg("skipping unreadable place")
			continue
		}
		results = append(results, doc.toPlace())
	}
	if len(results) == 0 {
		return nil, types.StatusZeroResults, nil
	}
	return results, types.StatusOK, nil
}

func textQuery(q types.TextQuery) elastic.Query {
	return elastic.NewBoolQuery().
		Must(elastic.NewMatchQuery("name", q.Query)).
		Filter(elastic.NewGeoDistanceQuery("location").
			Lat(q.Location.Lat).
			Lon(q.Location.Lng).
			Distance(fmt.Sprintf("%dm", q.Radius)))
}

func statusFromError(err error) types.Status {
	switch {
	case elastic.IsStatusCode(err, http.StatusUnauthorized), elastic.IsStatusCode(err, http.StatusForbidden):
		return types.StatusRequestDenied
	case elastic.IsStatusCode(err, http.StatusBadRequest), elastic.IsNotFound(err):
		return types.StatusInvalidRequest
	default:
		return types.StatusUnknownError
	}
}

func (d placeDoc) toPlace() types.PlaceResult {
	p := types.PlaceResult{
		ID:          d.ID,
		Name:        d.Name,
		Address:     d.Address,
		RatingCount: d.RatingCount,
		Location:    types.Coordinate{Lat: d.Location.Lat, Lng: d.Location.Lon},
	}
	if d.Rating > 0 {
		rating := d.Rating
		p.Rating = &rating
	}
	for _, ref := range d.Photos {
		p.Photos = append(p.Photos, types.Photo{Reference: ref})
	}
	return p
}

// CreateIndexWithMapping creates the catalog index unless it exists.
func (es *ElasticStore) CreateIndexWithMapping(ctx context.Context) error {
	client, err := es.Client()
	if err != nil {
		return err
	}

	exists, err := client.IndexExists(es.Index).Do(ctx)
	if err != nil {
		return fmt.Errorf("check index %q: %w", es.Index, err)
	}
	if exists {
		log.Info().Str("index", es.Index).Msg("index already exists")
		return nil
	}

	createIndex, err := client.CreateIndex(es.Index).BodyString(schema).Do(ctx)
	if err != nil {
		return fmt.Errorf("create index %q: %w", es.Index, err)
	}
	if !createIndex.Acknowledged {
		log.Warn().Str("index", es.Index).Msg("create index was not acknowledged")
	}
	log.Info().Str("index", es.Index).Msg("index created")
	return nil
}

// LoadData bulk-indexes the tab separated file at path and returns how many
// places were indexed.
func (es *ElasticStore) LoadData(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	docs, err := readTSV(f)
	if err != nil {
		return 0, err
	}
	if err := es.savePlaces(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// readTSV reads "id name address phone lon lat [rating rating_count
// photo_refs]" rows; the first row is a header. photo_refs is comma
// separated.
func readTSV(r io.Reader) ([]placeDoc, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var docs []placeDoc
	for first := true; ; first = false {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read places: %w", err)
		}
		if first {
			continue
		}
		doc, err := parseRecord(record)
		if err != nil {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func parseRecord(record []string) (placeDoc, error) {
	if len(record) < 6 {
		return placeDoc{}, fmt.Errorf("want at least 6 fields, got %d", len(record))
	}
	lon, err := strconv.ParseFloat(record[4], 64)
	if err != nil {
		return placeDoc{}, fmt.Errorf("parse longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(record[5], 64)
	if err != nil {
		return placeDoc{}, fmt.Errorf("parse latitude: %w", err)
	}

	doc := placeDoc{
		ID:       record[0],
		Name:     record[1],
		Address:  record[2],
		Phone:    record[3],
		Location: elastic.GeoPoint{Lat: lat, Lon: lon},
	}
	if len(record) > 6 && record[6] != "" {
		if doc.Rating, err = strconv.ParseFloat(record[6], 64); err != nil {
			return placeDoc{}, fmt.Errorf("parse rating: %w", err)
		}
	}
	if len(record) > 7 && record[7] != "" {
		if doc.RatingCount, err = strconv.Atoi(record[7]); err != nil {
			return placeDoc{}, fmt.Errorf("parse rating count: %w", err)
		}
	}
	if len(record) > 8 && record[8] != "" {
		doc.Photos = strings.Split(record[8], ",")
	}
	return doc, nil
}

func (es *ElasticStore) savePlaces(ctx context.Context, docs []placeDoc) error {
	if len(docs) == 0 {
		return nil
	}
	client, err := es.Client()
	if err != nil {
		return err
	}

	bulkRequest := client.Bulk()
	for _, doc := range docs {
		bulkRequest = bulkRequest.Add(elastic.NewBulkIndexRequest().Index(es.Index).Id(doc.ID).Doc(doc))
	}

	bulkResponse, err := bulkRequest.Do(ctx)
	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}
	for _, item := range bulkResponse.Failed() {
		if item.Error != nil {
			log.Warn().Str("id", item.Id).Str("reason", item.Error.Reason).Msg("failed to index place")
		}
	}
	return nil
}
