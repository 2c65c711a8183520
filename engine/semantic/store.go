// Package semantic is the sole owner of all Qdrant operations: schema
// management and idempotent snippet upserts.
package semantic

import (
	"context"
	"fmt"
	"log/slog"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/docsnips/docsnips/engine/domain"
	"github.com/docsnips/docsnips/pkg/embed"
	"github.com/docsnips/docsnips/pkg/fn"
)

// upsertBatchSize caps points per upsert request.
const upsertBatchSize = 64

// indexedFields are the payload paths that get keyword indexes so search
// results can be filtered by package and language.
var indexedFields = []string{"metadata.package_name", "metadata.language"}

// VectorStore wraps the Qdrant gRPC clients for one collection.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	log         *slog.Logger
}

// New connects to Qdrant at the given gRPC address. An empty apiKey skips
// authentication; otherwise it is passed through on every call.
func New(addr, collection, apiKey string, log *slog.Logger) (*VectorStore, error) {
	if log == nil {
		log = slog.Default()
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if apiKey != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(apiKey)))
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		log:         log,
	}, nil
}

// NewWithClients creates a VectorStore over existing clients. Test seam.
func NewWithClients(points pb.PointsClient, collections pb.CollectionsClient, collection string) *VectorStore {
	return &VectorStore{
		points:      points,
		collections: collections,
		collection:  collection,
		log:         slog.Default(),
	}
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// EnsureSchema creates the collection if absent: one named cosine vector of
// the given dimension, a single-segment optimizer for compact snapshots,
// and keyword indexes on the filterable payload fields. Calling it against
// an existing collection is a no-op.
func (v *VectorStore) EnsureSchema(ctx context.Context, vectorName string, dim int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	segments := uint64(1)
	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_ParamsMap{
				ParamsMap: &pb.VectorParamsMap{
					Map: map[string]*pb.VectorParams{
						vectorName: {
							Size:     uint64(dim),
							Distance: pb.Distance_Cosine,
						},
					},
				},
			},
		},
		OptimizersConfig: &pb.OptimizersConfigDiff{
			DefaultSegmentNumber: &segments,
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}

	fieldType := pb.FieldType_FieldTypeKeyword
	for _, field := range indexedFields {
		_, err := v.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
			CollectionName: v.collection,
			FieldName:      field,
			FieldType:      &fieldType,
		})
		if err != nil {
			return fmt.Errorf("semantic: index %s: %w", field, err)
		}
	}
	return nil
}

// UpsertSnippets embeds and writes snippets with deterministic identifiers,
// so re-running an unchanged ingestion overwrites points instead of
// duplicating them. Snippets without context are stored payload-only:
// findable by filter, invisible to similarity search. A snippet that fails
// validation is skipped with a warning rather than failing the batch.
// Returns the number of points written.
func (v *VectorStore) UpsertSnippets(ctx context.Context, provider embed.Provider, snippets []domain.Snippet) (int, error) {
	written := 0
	for _, batch := range fn.Chunk(snippets, upsertBatchSize) {
		points := make([]*pb.PointStruct, 0, len(batch))
		for _, s := range batch {
			if err := domain.ValidateSnippet(s); err != nil {
				v.log.Warn("skipping invalid snippet", "source", s.Source, "error", err)
				continue
			}
			point := &pb.PointStruct{
				Id: &pb.PointId{
					PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(s)},
				},
				Payload: snippetPayload(s),
			}
			if doc := s.Document(); doc != "" {
				vec, err := provider.Embed(ctx, doc)
				if err != nil {
					return written, fmt.Errorf("semantic: embed %s: %w", s.Source, err)
				}
				point.Vectors = &pb.Vectors{
					VectorsOptions: &pb.Vectors_Vectors{
						Vectors: &pb.NamedVectors{
							Vectors: map[string]*pb.Vector{
								provider.VectorName(): {Data: vec},
							},
						},
					},
				}
			}
			points = append(points, point)
		}
		if len(points) == 0 {
			continue
		}

		wait := true
		_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: v.collection,
			Wait:           &wait,
			Points:         points,
		})
		if err != nil {
			return written, fmt.Errorf("semantic: upsert %d points: %w", len(points), err)
		}
		written += len(points)
	}
	return written, nil
}

// snippetPayload builds the stored payload: the embedded document plus a
// metadata struct of everything else.
func snippetPayload(s domain.Snippet) map[string]*pb.Value {
	meta := s.Metadata()
	fields := make(map[string]*pb.Value, len(meta))
	for k, val := range meta {
		fields[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: val}}
	}
	return map[string]*pb.Value{
		"document": {Kind: &pb.Value_StringValue{StringValue: s.Document()}},
		"metadata": {Kind: &pb.Value_StructValue{StructValue: &pb.Struct{Fields: fields}}},
	}
}
