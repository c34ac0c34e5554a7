package chromem

import (
	"context"
	"sort"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/pkg/errors"

	"github.com/bububa/docqa/components/embedder"
	"github.com/bububa/docqa/components/vectordb"
)

// catalog is the collection holding one document per index with its dimension
const catalog = "docqa_catalog"

const (
	metaDimension = "dimension"
	metaTag       = "tag"
	metaNTokens   = "ntokens"
	metaSeq       = "seq"
	metaVector    = "vector"
)

// Store keeps indices in a chromem database, one collection per index.
// chromem normalizes the vectors it indexes, so the exact float32 bits are
// kept in the document metadata and used on Load.
type Store struct {
	db *chromem.DB
}

var _ vectordb.Store = (*Store)(nil)

func New(db *chromem.DB) *Store {
	return &Store{
		db: db,
	}
}

// NewPersistent opens or creates a gzip compressed chromem database under path.
func NewPersistent(path string) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, true)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// noEmbedding refuses to compute embeddings, every document carries its own.
func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("chromem store: documents must carry their embedding")
}

func (s *Store) catalog() (*chromem.Collection, error) {
	return s.db.GetOrCreateCollection(catalog, nil, noEmbedding)
}

func (s *Store) dimension(ctx context.Context, name string) (int, error) {
	cat, err := s.catalog()
	if err != nil {
		return 0, err
	}
	if cat.Count() == 0 {
		return 0, vectordb.ErrStoreNotFound
	}
	doc, err := cat.GetByID(ctx, name)
	if err != nil {
		return 0, errors.Wrap(vectordb.ErrStoreNotFound, name)
	}
	return strconv.Atoi(doc.Metadata[metaDimension])
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
	if _, err := s.db.GetOrCreateCollection(name, nil, noEmbedding); err != nil {
		return err
	}
	cat, err := s.catalog()
	if err != nil {
		return err
	}
	return cat.AddDocument(ctx, chromem.Document{
		ID:        name,
		Metadata:  map[string]string{metaDimension: strconv.Itoa(dim)},
		Embedding: []float32{1},
		Content:   name,
	})
}

func (s *Store) Put(ctx context.Context, name string, position int, rec vectordb.Record) error {
	col := s.db.GetCollection(name, noEmbedding)
	if col == nil {
		return errors.Wrap(vectordb.ErrStoreNotFound, name)
	}
	vector := rec.Embedding()
	return col.AddDocument(ctx, chromem.Document{
		ID: rec.Key(),
		Metadata: map[string]string{
			metaTag:     rec.Tag(),
			metaNTokens: strconv.Itoa(rec.NTokens()),
			metaSeq:     strconv.Itoa(position),
			metaVector:  string(embedder.EncodeBase64(vector)),
		},
		Embedding: vector,
		Content:   rec.Text(),
	})
}

func (s *Store) Drop(ctx context.Context, name string) error {
	if err := s.db.DeleteCollection(name); err != nil {
		return err
	}
	cat, err := s.catalog()
	if err != nil {
		return err
	}
	return cat.Delete(ctx, nil, nil, name)
}

func (s *Store) Load(ctx context.Context, name string) (int, []vectordb.Record, error) {
	dim, err := s.dimension(ctx, name)
	if err != nil {
		return 0, nil, err
	}
	col := s.db.GetCollection(name, noEmbedding)
	if col == nil {
		return 0, nil, errors.Wrap(vectordb.ErrStoreNotFound, name)
	}
	count := col.Count()
	if count == 0 {
		return dim, nil, nil
	}
	// chromem has no listing call, a query for every document returns them all
	axis := make([]float32, dim)
	axis[0] = 1
	results, err := col.QueryEmbedding(ctx, axis, count, nil, nil)
	if err != nil {
		return 0, nil, err
	}
	type positioned struct {
		seq int
		rec vectordb.Record
	}
	list := make([]positioned, 0, len(results))
	for _, res := range results {
		rec, seq, err := resultToRecord(dim, &res)
		if err != nil {
			return 0, nil, errors.Wrapf(err, "decode %s", res.ID)
		}
		list = append(list, positioned{seq: seq, rec: rec})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].seq < list[j].seq
	})
	records := make([]vectordb.Record, 0, len(list))
	for _, v := range list {
		records = append(records, v.rec)
	}
	return dim, records, nil
}

func resultToRecord(dim int, res *chromem.Result) (vectordb.Record, int, error) {
	seq, err := strconv.Atoi(res.Metadata[metaSeq])
	if err != nil {
		return vectordb.Record{}, 0, err
	}
	ntokens, err := strconv.Atoi(res.Metadata[metaNTokens])
	if err != nil {
		return vectordb.Record{}, 0, err
	}
	vector, err := embedder.Base64(res.Metadata[metaVector]).Decode()
	if err != nil {
		return vectordb.Record{}, 0, err
	}
	rec, err := vectordb.NewRecord(dim, res.ID, res.Metadata[metaTag], res.Content, ntokens, vector)
	return rec, seq, err
}
