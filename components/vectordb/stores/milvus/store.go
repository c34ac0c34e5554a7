package milvus

import (
	"context"
	"sort"
	"strconv"

	milvusClient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/pkg/errors"

	"github.com/bububa/docqa/components/vectordb"
)

const (
	fieldKey       = "key"
	fieldSeq       = "seq"
	fieldTag       = "tag"
	fieldText      = "text"
	fieldNTokens   = "ntokens"
	fieldEmbedding = "embedding"

	maxKeyLength  = 512
	maxTextLength = 65535
)

// Store keeps every index in its own Milvus collection.
// Load reads the whole collection in one query, Milvus caps it at 16384 rows.
type Store struct {
	db milvusClient.Client
}

var _ vectordb.Store = (*Store)(nil)

func New(db milvusClient.Client) *Store {
	return &Store{
		db: db,
	}
}

func (s *Store) dimension(ctx context.Context, name string) (int, error) {
	exists, err := s.db.HasCollection(ctx, name)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, errors.Wrap(vectordb.ErrStoreNotFound, name)
	}
	coll, err := s.db.DescribeCollection(ctx, name)
	if err != nil {
		return 0, err
	}
	for _, field := range coll.Schema.Fields {
		if field.Name == fieldEmbedding {
			return strconv.Atoi(field.TypeParams[entity.TypeParamDim])
		}
	}
	return 0, errors.Errorf("collection %s has no %s field", name, fieldEmbedding)
}

func (s *Store) Create(ctx context.Context, name string, dim int) error {
	if got, err := s.dimension(ctx, name); err == nil {
		if got != dim {
			return errors.Wrapf(vectordb.ErrAlreadyInitialized, "%s stored with embedding size %d", name, got)
		}
		return nil
	} else if !errors.Is(err, vectordb.ErrStoreNotFound) {
		return err
	}
	keyField := entity.NewField().WithName(fieldKey).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxKeyLength).WithIsPrimaryKey(true).WithIsAutoID(false)
	seqField := entity.NewField().WithName(fieldSeq).WithDataType(entity.FieldTypeInt64)
	tagField := entity.NewField().WithName(fieldTag).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxKeyLength)
	textField := entity.NewField().WithName(fieldText).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxTextLength)
	ntokensField := entity.NewField().WithName(fieldNTokens).WithDataType(entity.FieldTypeInt64)
	vectorField := entity.NewField().WithName(fieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim))
	schema := entity.NewSchema().WithName(name).WithAutoID(false).
		WithField(keyField).WithField(seqField).WithField(tagField).
		WithField(textField).WithField(ntokensField).WithField(vectorField)
	if err := s.db.CreateCollection(ctx, schema, 1); err != nil {
		return err
	}
	idx, err := entity.NewIndexFlat(entity.COSINE)
	if err != nil {
		return err
	}
	if err := s.db.CreateIndex(ctx, name, fieldEmbedding, idx, false); err != nil {
		return err
	}
	return s.db.LoadCollection(ctx, name, false)
}

func (s *Store) Put(ctx context.Context, name string, position int, rec vectordb.Record) error {
	vector := rec.Embedding()
	columns := []entity.Column{
		entity.NewColumnVarChar(fieldKey, []string{rec.Key()}),
		entity.NewColumnInt64(fieldSeq, []int64{int64(position)}),
		entity.NewColumnVarChar(fieldTag, []string{rec.Tag()}),
		entity.NewColumnVarChar(fieldText, []string{rec.Text()}),
		entity.NewColumnInt64(fieldNTokens, []int64{int64(rec.NTokens())}),
		entity.NewColumnFloatVector(fieldEmbedding, len(vector), [][]float32{vector}),
	}
	_, err := s.db.Upsert(ctx, name, "", columns...)
	return err
}

func (s *Store) Drop(ctx context.Context, name string) error {
	exists, err := s.db.HasCollection(ctx, name)
	if err != nil || !exists {
		return err
	}
	return s.db.DropCollection(ctx, name)
}

func (s *Store) Load(ctx context.Context, name string) (int, []vectordb.Record, error) {
	dim, err := s.dimension(ctx, name)
	if err != nil {
		return 0, nil, err
	}
	if err := s.db.LoadCollection(ctx, name, false); err != nil {
		return 0, nil, err
	}
	rs, err := s.db.Query(ctx, name, nil, fieldSeq+" >= 0",
		[]string{fieldKey, fieldSeq, fieldTag, fieldText, fieldNTokens, fieldEmbedding},
		milvusClient.WithSearchQueryConsistencyLevel(entity.ClStrong))
	if err != nil {
		return 0, nil, err
	}
	keys, ok1 := rs.GetColumn(fieldKey).(*entity.ColumnVarChar)
	seqs, ok2 := rs.GetColumn(fieldSeq).(*entity.ColumnInt64)
	tags, ok3 := rs.GetColumn(fieldTag).(*entity.ColumnVarChar)
	texts, ok4 := rs.GetColumn(fieldText).(*entity.ColumnVarChar)
	ntokens, ok5 := rs.GetColumn(fieldNTokens).(*entity.ColumnInt64)
	vectors, ok6 := rs.GetColumn(fieldEmbedding).(*entity.ColumnFloatVector)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6) {
		if len(rs) == 0 {
			return dim, nil, nil
		}
		return 0, nil, errors.Errorf("unexpected result columns for %s", name)
	}
	order := make([]int, keys.Len())
	for i := range order {
		order[i] = i
	}
	seqData := seqs.Data()
	sort.Slice(order, func(a, b int) bool {
		return seqData[order[a]] < seqData[order[b]]
	})
	records := make([]vectordb.Record, 0, len(order))
	for _, i := range order {
		rec, err := vectordb.NewRecord(dim, keys.Data()[i], tags.Data()[i], texts.Data()[i], int(ntokens.Data()[i]), vectors.Data()[i])
		if err != nil {
			return 0, nil, err
		}
		records = append(records, rec)
	}
	return dim, records, nil
}
