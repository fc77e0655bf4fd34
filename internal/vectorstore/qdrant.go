// Package vectorstore provides the Qdrant-backed vector store for event and product records.
package vectorstore

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/knoguchi/catalogsearch/internal/search"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Config holds Qdrant connection settings
type Config struct {
	// URL in "host:port" form for the gRPC API (e.g., "localhost:6334")
	URL        string
	APIKey     string
	UseTLS     bool
	Collection string

	// ScoreThreshold drops points scoring below it; 0 keeps everything
	ScoreThreshold float32
}

// QdrantStore implements search.VectorStore using Qdrant
type QdrantStore struct {
	client         *qdrant.Client
	collection     string
	scoreThreshold float32
}

// NewQdrantStore creates a new Qdrant vector store client
func NewQdrantStore(cfg Config) (*QdrantStore, error) {
	host, portStr, err := net.SplitHostPort(cfg.URL)
	if err != nil {
		// If no port specified, assume default
		host = cfg.URL
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantStore{
		client:         client,
		collection:     cfg.Collection,
		scoreThreshold: cfg.ScoreThreshold,
	}, nil
}

// Close closes the Qdrant client connection
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// Ping checks that Qdrant is reachable
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check (%s): %w", status.Code(err), err)
	}
	return nil
}

// Query runs a filtered similarity search
func (s *QdrantStore) Query(ctx context.Context, vector []float32, filter search.Filter, limit int) (search.QueryResult, error) {
	req := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         toQdrantFilter(filter),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if s.scoreThreshold > 0 {
		req.ScoreThreshold = qdrant.PtrOf(s.scoreThreshold)
	}

	points, err := s.client.Query(ctx, req)
	if err != nil {
		return search.QueryResult{}, fmt.Errorf("query %s (%s): %w: %w", s.collection, status.Code(err), search.ErrStoreQuery, err)
	}

	records := make([]search.Record, 0, len(points))
	for _, point := range points {
		records = append(records, toRecord(point.GetScore(), point.GetPayload()))
	}

	return search.QueryResult{Records: records}, nil
}

// payloadIndexes lists the fields filtered on at query time
var payloadIndexes = []struct {
	field string
	kind  qdrant.FieldType
}{
	{search.FieldSegment, qdrant.FieldType_FieldTypeKeyword},
	{search.FieldOriginalID, qdrant.FieldType_FieldTypeKeyword},
	{search.FieldContent, qdrant.FieldType_FieldTypeText},
	{search.FieldAudience, qdrant.FieldType_FieldTypeKeyword},
	{search.FieldStartDate, qdrant.FieldType_FieldTypeDatetime},
	{search.FieldEventOn, qdrant.FieldType_FieldTypeKeyword},
}

// EnsureCollection creates the collection and its payload indexes if it does not exist.
// It reports whether the collection was created.
func (s *QdrantStore) EnsureCollection(ctx context.Context, dimension int) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return false, nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return false, fmt.Errorf("failed to create collection: %w", err)
	}

	for _, idx := range payloadIndexes {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      idx.field,
			FieldType:      idx.kind.Enum(),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil && status.Code(err) != codes.AlreadyExists {
			return false, fmt.Errorf("failed to create %s index: %w", idx.field, err)
		}
	}

	return true, nil
}

// DeleteEntry removes every point for one record. It reports false when no point
// matched.
func (s *QdrantStore) DeleteEntry(ctx context.Context, segment search.Segment, originalID string) (bool, error) {
	filter := entryFilter(segment, originalID)

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         filter,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return false, fmt.Errorf("failed to count entry points: %w", err)
	}
	if count == 0 {
		return false, nil
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: filter,
			},
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}

	return true, nil
}

func entryFilter(segment search.Segment, originalID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(search.FieldSegment, string(segment)),
			qdrant.NewMatch(search.FieldOriginalID, originalID),
		},
	}
}

// toQdrantFilter translates a search filter. The optional group is omitted when
// nothing is required of it.
func toQdrantFilter(f search.Filter) *qdrant.Filter {
	out := &qdrant.Filter{}

	for _, c := range f.Must {
		out.Must = append(out.Must, toCondition(c))
	}

	if f.MinShould > 0 && len(f.Should) > 0 {
		should := make([]*qdrant.Condition, len(f.Should))
		for i, c := range f.Should {
			should[i] = toCondition(c)
		}
		out.MinShould = &qdrant.MinShould{
			Conditions: should,
			MinCount:   uint64(f.MinShould),
		}
	}

	return out
}

func toCondition(c search.Condition) *qdrant.Condition {
	switch c.Kind {
	case search.KindText:
		return qdrant.NewMatchText(c.Key, c.Value)
	case search.KindDateRange:
		r := &qdrant.DatetimeRange{}
		if !c.Range.Start.IsZero() {
			r.Gte = timestamppb.New(c.Range.Start)
		}
		if !c.Range.End.IsZero() {
			if c.Range.EndInclusive {
				r.Lte = timestamppb.New(c.Range.End)
			} else {
				r.Lt = timestamppb.New(c.Range.End)
			}
		}
		return qdrant.NewDatetimeRange(c.Key, r)
	default:
		return qdrant.NewMatch(c.Key, c.Value)
	}
}

// toRecord converts a scored point's payload into a record, keeping the full payload
func toRecord(score float32, payload map[string]*qdrant.Value) search.Record {
	rec := search.Record{
		Score:   score,
		Payload: make(map[string]any, len(payload)),
	}
	for k, v := range payload {
		rec.Payload[k] = fromValue(v)
	}
	if v, ok := payload[search.FieldSegment]; ok {
		rec.Segment = search.Segment(v.GetStringValue())
	}
	if v, ok := payload[search.FieldOriginalID]; ok {
		rec.OriginalID = v.GetStringValue()
	}
	if v, ok := payload[search.FieldContent]; ok {
		rec.Content = v.GetStringValue()
	}
	return rec
}

func fromValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_StructValue:
		fields := kind.StructValue.GetFields()
		m := make(map[string]any, len(fields))
		for k, fv := range fields {
			m[k] = fromValue(fv)
		}
		return m
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		list := make([]any, len(values))
		for i, lv := range values {
			list[i] = fromValue(lv)
		}
		return list
	default:
		return nil
	}
}

// Ensure QdrantStore implements search.VectorStore
var _ search.VectorStore = (*QdrantStore)(nil)
