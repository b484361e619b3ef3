// Package chromemdb keeps a chromem-go vector collection as a local,
// file-backed index for runs without Postgres. It is not the system of
// record; the pgvector store is.
package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"question-rag/internal/models"
)

const compress = false

// LocalIndex encapsulates the chromem-go database operations. Chunks
// are stored as chromem documents carrying question id and chunk index
// in their metadata, which is what delete-by-question filters on.
type LocalIndex struct {
	db            *chromem.DB
	collection    *chromem.Collection
	dbPath        string
	encryptionKey string
	filePath      string
}

func NewLocalIndex(dbPath, collectionName string, inMemory bool, encryptionKey string) (*LocalIndex, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}

	return &LocalIndex{
		db:            db,
		collection:    collection,
		dbPath:        dbPath,
		encryptionKey: encryptionKey,
		filePath:      dbPath + "/" + collectionName + ".chromem",
	}, nil
}

// AddChunks stores already-embedded chunks in the collection.
func (ix *LocalIndex) AddChunks(ctx context.Context, chunks []models.ChunkEmbedding) error {
	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		docs = append(docs, chromem.Document{
			ID:      chunk.ID,
			Content: chunk.ChunkText,
			Metadata: map[string]string{
				"question_id": chunk.QuestionID,
				"chunk_index": strconv.Itoa(chunk.ChunkIndex),
			},
			Embedding: chunk.Embedding,
		})
	}
	if err := ix.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Search ranks the collection by cosine similarity to the query
// vector, applying the same threshold, ordering and tie-break rules as
// the persisted store.
func (ix *LocalIndex) Search(ctx context.Context, queryEmbedding []float32, limit int, threshold float64) ([]models.ScoredChunk, error) {
	count := ix.collection.Count()
	if count == 0 {
		return []models.ScoredChunk{}, nil
	}
	nResults := min(limit, count)

	results, err := ix.collection.QueryEmbedding(ctx, queryEmbedding, nResults, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	scored := make([]models.ScoredChunk, 0, len(results))
	for _, result := range results {
		score := float64(result.Similarity)
		if score < threshold {
			continue
		}
		index, _ := strconv.Atoi(result.Metadata["chunk_index"])
		scored = append(scored, models.ScoredChunk{
			Chunk: models.ChunkEmbedding{
				ID:         result.ID,
				QuestionID: result.Metadata["question_id"],
				ChunkIndex: index,
				ChunkText:  result.Content,
				Embedding:  result.Embedding,
				Score:      score,
			},
			Score: score,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Chunk.ChunkIndex != scored[j].Chunk.ChunkIndex {
			return scored[i].Chunk.ChunkIndex < scored[j].Chunk.ChunkIndex
		}
		return scored[i].Chunk.QuestionID < scored[j].Chunk.QuestionID
	})
	return scored, nil
}

// DeleteQuestion drops every document of the question from the
// collection.
func (ix *LocalIndex) DeleteQuestion(ctx context.Context, questionID string) error {
	err := ix.collection.Delete(ctx, map[string]string{"question_id": questionID}, nil)
	if err != nil {
		return fmt.Errorf("failed to delete question documents: %v", err)
	}
	return nil
}

// Count reports how many chunks the collection holds.
func (ix *LocalIndex) Count() int {
	return ix.collection.Count()
}

// DeleteCollection drops the whole collection.
func (ix *LocalIndex) DeleteCollection() error {
	if err := ix.db.DeleteCollection(ix.collection.Name); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	return nil
}

// Export writes the collection to an encrypted file.
func (ix *LocalIndex) Export(ctx context.Context) error {
	if ix.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	if ix.dbPath == "" {
		return fmt.Errorf("db path is required")
	}

	log.Debug().Str("collection", ix.collection.Name).Str("file", ix.filePath).Msg("Exporting collection")
	if err := ix.db.ExportToFile(ix.filePath, compress, ix.encryptionKey, ix.collection.Name); err != nil {
		return fmt.Errorf("failed to export database: %v", err)
	}
	return nil
}

// Import restores the collection from a previous export. The imported
// collection replaces the in-memory one, so the handle is re-fetched
// afterwards.
func (ix *LocalIndex) Import(ctx context.Context) error {
	if ix.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}

	log.Debug().Str("collection", ix.collection.Name).Str("file", ix.filePath).Msg("Importing collection")
	if err := ix.db.ImportFromFile(ix.filePath, ix.encryptionKey, ix.collection.Name); err != nil {
		return fmt.Errorf("failed to import database: %v", err)
	}

	collection, err := ix.db.GetOrCreateCollection(ix.collection.Name, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to reopen collection: %v", err)
	}
	ix.collection = collection
	return nil
}
