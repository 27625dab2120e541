package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jinford/kb-chat/internal/core/ingestion"
	"github.com/jinford/kb-chat/internal/core/search"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/samber/mo"
)

// undefinedTableCode はPostgreSQLの "relation does not exist" (SQLSTATE 42P01)
const undefinedTableCode = "42P01"

// collectionNameRe はコレクション名として許可する識別子パターン
var collectionNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ErrInvalidCollectionName はコレクション名が識別子として不正な場合のエラー
var ErrInvalidCollectionName = errors.New("invalid collection name")

// Store は pgvector を使用した永続的な類似検索ストア。
// コレクションごとに1テーブルを持ち、テーブル未作成は自己修復する。
// 真のI/O障害のみを ingestion.ErrIndexUnavailable として返す。
type Store struct {
	pool       *pgxpool.Pool
	collection string
	dimension  int
	logger     *slog.Logger
}

// StoreOption は Store 構築時のオプション
type StoreOption func(*Store)

// WithStoreLogger は Store にロガーを設定する
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore は新しい Store を作成し、コレクションの存在を保証する
func NewStore(ctx context.Context, pool *pgxpool.Pool, collection string, dimension int, opts ...StoreOption) (*Store, error) {
	if !collectionNameRe.MatchString(collection) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCollectionName, collection)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}

	s := &Store{
		pool:       pool,
		collection: collection,
		dimension:  dimension,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// インターフェース実装の確認
var _ ingestion.Repository = (*Store)(nil)
var _ search.Repository = (*Store)(nil)

// tableName はサニタイズ済みのテーブル識別子を返す
func (s *Store) tableName() string {
	return pgx.Identifier{s.collection}.Sanitize()
}

// ensureCollection はコレクションテーブルとHNSWインデックスを作成する
func (s *Store) ensureCollection(ctx context.Context) error {
	ddl := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id uuid PRIMARY KEY,
			source_name text,
			chunk_index integer,
			content text NOT NULL,
			embedding vector(%d) NOT NULL
		)`, s.tableName(), s.dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
			pgx.Identifier{s.collection + "_embedding_idx"}.Sanitize(), s.tableName()),
	}

	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: failed to create collection %s: %v", ingestion.ErrIndexUnavailable, s.collection, err)
		}
	}

	return nil
}

// UpsertChunks はチャンクをまとめて保存する
func (s *Store) UpsertChunks(ctx context.Context, chunks []*ingestion.DocumentChunk) error {
	err := s.upsertChunks(ctx, chunks)
	if isUndefinedTable(err) {
		// コレクション未作成は自己修復して1回だけ再試行する
		if healErr := s.ensureCollection(ctx); healErr != nil {
			return healErr
		}
		err = s.upsertChunks(ctx, chunks)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ingestion.ErrIndexUnavailable, err)
	}
	return nil
}

func (s *Store) upsertChunks(ctx context.Context, chunks []*ingestion.DocumentChunk) error {
	batch := &pgx.Batch{}
	stmt := fmt.Sprintf(`INSERT INTO %s (id, source_name, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			source_name = EXCLUDED.source_name,
			chunk_index = EXCLUDED.chunk_index,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`, s.tableName())

	for _, chunk := range chunks {
		batch.Queue(stmt, chunk.ID, chunk.SourceName, chunk.ChunkIndex, chunk.Text, pgvector.NewVector(chunk.Embedding))
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return results.Close()
}

// QueryNearest はコサイン距離で最も近いk件を距離の昇順で返す
func (s *Store) QueryNearest(ctx context.Context, vector []float32, k int) ([]*search.RetrievalResult, error) {
	query := fmt.Sprintf(`SELECT content, source_name, chunk_index, embedding <=> $1 AS distance
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, s.tableName())

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vector), k)
	if isUndefinedTable(err) {
		// コレクションが未作成なら空コーパスとして扱い、自己修復する
		if healErr := s.ensureCollection(ctx); healErr != nil {
			return nil, healErr
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ingestion.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var results []*search.RetrievalResult
	for rows.Next() {
		var (
			content    string
			sourceName pgtype.Text
			chunkIndex pgtype.Int4
			distance   pgtype.Float8
		)
		if err := rows.Scan(&content, &sourceName, &chunkIndex, &distance); err != nil {
			return nil, fmt.Errorf("%w: %v", ingestion.ErrIndexUnavailable, err)
		}

		// メタデータ欠損はインデックス境界でデフォルト値に落とす
		result := &search.RetrievalResult{
			Text:       content,
			SourceName: "unknown",
			ChunkIndex: 0,
			Distance:   mo.None[float64](),
		}
		if sourceName.Valid && sourceName.String != "" {
			result.SourceName = sourceName.String
		}
		if chunkIndex.Valid {
			result.ChunkIndex = int(chunkIndex.Int32)
		}
		if distance.Valid {
			result.Distance = mo.Some(distance.Float64)
		}

		results = append(results, result)
	}

	// pgx はクエリレベルのエラーを rows.Err() まで遅延させる
	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			if healErr := s.ensureCollection(ctx); healErr != nil {
				return nil, healErr
			}
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ingestion.ErrIndexUnavailable, err)
	}

	return results, nil
}

// Count は保存されているチャンク数を返す
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, s.tableName())).Scan(&count)
	if isUndefinedTable(err) {
		if healErr := s.ensureCollection(ctx); healErr != nil {
			return 0, healErr
		}
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ingestion.ErrIndexUnavailable, err)
	}
	return count, nil
}

// DeleteAll はコレクションを破棄し、空のコレクションを再作成する。
// テーブルが存在しなくてもエラーとしない（冪等）。
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.tableName())); err != nil {
		return fmt.Errorf("%w: %v", ingestion.ErrIndexUnavailable, err)
	}

	// クリア後も空のストアが存在することを保証する
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	s.logger.Info("collection cleared", "collection", s.collection)
	return nil
}

// isUndefinedTable は "relation does not exist" かどうかを判定する
func isUndefinedTable(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode
}
