package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"question-rag/internal/chromemdb"
	"question-rag/internal/chunker"
	"question-rag/internal/config"
	"question-rag/internal/db"
	"question-rag/internal/embedding"
	"question-rag/internal/helper"
	"question-rag/internal/models"
	"question-rag/internal/parser"
	"question-rag/internal/rag"
)

const (
	defaultConfigPath = "./configs/config.yaml"

	localDBPath     = "./chromemdb"
	localCollection = "question_chunks"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	questionID := flag.String("question", "", "Question id to index context for")
	text := flag.String("text", "", "Context text to index")
	filePath := flag.String("file", "", "Path to a context document (pdf, docx, pptx, xlsx, ods, txt)")
	query := flag.String("query", "", "Query to search for")
	answer := flag.Bool("answer", false, "Generate an answer from the retrieved chunks")
	limit := flag.Int("limit", 0, "Maximum number of search results (0 = config default)")
	threshold := flag.Float64("threshold", -2, "Similarity threshold in [-1, 1] (-2 = config default)")
	deleteID := flag.String("delete", "", "Question id to delete embeddings for")
	deleteQuestionID := flag.String("delete-question", "", "Question id to delete entirely; its chunks ride the cascade")
	stats := flag.Bool("stats", false, "Print chunk store statistics")
	local := flag.Bool("local", false, "Use the local chromem index instead of Postgres")
	export := flag.Bool("export", false, "Export the local chromem collection to an encrypted file")
	restore := flag.Bool("import", false, "Restore the local chromem collection from a previous export")
	reset := flag.Bool("reset", false, "Drop and recreate the database tables")

	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Interface("rag", cfg.RAG).Msg("Loaded config")

	switch {
	case *questionID != "" && (*text != "" || *filePath != ""):
		indexQuestion(ctx, cfg, *local, *questionID, *text, *filePath)
	case *query != "" && *answer:
		answerQuery(ctx, cfg, *query)
	case *query != "":
		searchContent(ctx, cfg, *local, *query, *limit, *threshold)
	case *deleteID != "":
		deleteQuestion(ctx, cfg, *deleteID)
	case *deleteQuestionID != "":
		deleteQuestionRow(ctx, cfg, *deleteQuestionID)
	case *export:
		exportLocal(ctx, cfg)
	case *restore:
		importLocal(ctx, cfg)
	case *reset:
		resetDatabase(ctx, cfg)
	case *stats:
		showStats(ctx, cfg)
	default:
		log.Fatal().Msg("Provide -question with -text/-file to index, -query to search, -delete to remove, or -stats")
	}
}

func buildService(ctx context.Context, cfg *config.Config) (*rag.Service, *db.QuestionRepo, func()) {
	dbClient, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	bunDB := db.NewDB(dbClient, cfg.Database.Debug)

	if err := db.InitDB(ctx, bunDB, cfg.RAG.VectorSize); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}

	embedder := buildEmbedder(cfg)
	store := db.NewPgStore(bunDB)
	questions := db.NewQuestionRepo(bunDB)

	service := rag.NewService(store, questions, embedder, &cfg.RAG, &cfg.ChatLLM)
	return service, questions, func() { bunDB.Close() }
}

func buildEmbedder(cfg *config.Config) *embedding.BatchEmbedder {
	inner, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	return embedding.NewBatchEmbedder(inner, cfg.RAG.VectorSize, cfg.RAG.MaxBatchSize, cfg.RAG.EmbedTimeout(), cfg.EmbedLLM.Model)
}

func indexQuestion(ctx context.Context, cfg *config.Config, local bool, questionID, text, filePath string) {
	if filePath != "" {
		parsed, err := parser.ExtractText(filePath)
		if err != nil {
			log.Fatal().Err(err).Str("file", filePath).Msg("Error parsing context document")
		}
		text = parsed
	}

	if local {
		indexQuestionLocal(ctx, cfg, questionID, text)
		return
	}

	service, questions, closeDB := buildService(ctx, cfg)
	defer closeDB()

	if err := ensureQuestion(ctx, questions, questionID, text); err != nil {
		log.Fatal().Err(err).Msg("Error ensuring question record")
	}

	count, err := service.CreateEmbeddings(ctx, questionID, text)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating embeddings")
	}
	log.Info().Str("question_id", questionID).Int("chunks", count).Msg("Stored question context")
}

// ensureQuestion creates the question row when it does not exist yet,
// so the CLI can index ad-hoc ids without a separate question service.
func ensureQuestion(ctx context.Context, questions *db.QuestionRepo, questionID, text string) error {
	exists, err := questions.Exists(ctx, questionID)
	if err != nil || exists {
		return err
	}
	return questions.Create(ctx, &models.Question{
		ID:           questionID,
		QuestionText: firstLine(text),
		Status:       "PENDING",
	})
}

// indexQuestionLocal chunks and embeds the text, then replaces the
// question's documents in the chromem collection. No Postgres needed.
func indexQuestionLocal(ctx context.Context, cfg *config.Config, questionID, text string) {
	if err := helper.CreateFolder(localDBPath); err != nil {
		log.Fatal().Err(err).Msg("Error creating folder")
	}

	index, err := chromemdb.NewLocalIndex(localDBPath, localCollection, false, cfg.RAG.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating local index")
	}

	segments, err := chunker.Chunk(text, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		log.Fatal().Err(err).Msg("Error chunking context")
	}

	embedder := buildEmbedder(cfg)
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		log.Fatal().Err(err).Msg("Error generating embeddings")
	}

	chunks := make([]models.ChunkEmbedding, 0, len(segments))
	for i, seg := range segments {
		chunk, err := models.NewChunkEmbedding(questionID, seg.Index, seg.Text, vectors[i], nil, cfg.EmbedLLM.Model)
		if err != nil {
			log.Fatal().Err(err).Msg("Error building chunk")
		}
		chunks = append(chunks, chunk)
	}

	if err := index.DeleteQuestion(ctx, questionID); err != nil {
		log.Fatal().Err(err).Msg("Error clearing old chunks")
	}
	if err := index.AddChunks(ctx, chunks); err != nil {
		log.Fatal().Err(err).Msg("Error adding chunks to local index")
	}
	log.Info().Str("question_id", questionID).Int("chunks", len(chunks)).Msg("Stored question context locally")
}

func searchContent(ctx context.Context, cfg *config.Config, local bool, query string, limit int, threshold float64) {
	if limit == 0 {
		limit = cfg.RAG.SearchLimit
	}
	if threshold < -1 {
		threshold = cfg.RAG.SimilarityThreshold
	}

	var results []models.ScoredChunk
	if local {
		index, err := chromemdb.NewLocalIndex(localDBPath, localCollection, false, cfg.RAG.EncryptionKey)
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating local index")
		}
		queryEmbedding, err := buildEmbedder(cfg).EmbedQuery(ctx, query)
		if err != nil {
			log.Fatal().Err(err).Msg("Error embedding query")
		}
		results, err = index.Search(ctx, queryEmbedding, limit, threshold)
		if err != nil {
			log.Fatal().Err(err).Msg("Error searching local index")
		}
	} else {
		service, _, closeDB := buildService(ctx, cfg)
		defer closeDB()
		var err error
		results, err = service.SearchByText(ctx, query, limit, threshold)
		if err != nil {
			log.Fatal().Err(err).Msg("Error searching")
		}
	}

	log.Info().Int("results", len(results)).Msg("Search finished")
	for _, result := range results {
		fmt.Printf("[%.4f] question=%s chunk=%d\n%s\n\n", result.Score, result.Chunk.QuestionID, result.Chunk.ChunkIndex, result.Chunk.ChunkText)
	}
}

func answerQuery(ctx context.Context, cfg *config.Config, query string) {
	service, _, closeDB := buildService(ctx, cfg)
	defer closeDB()

	response, err := service.Answer(ctx, query)
	if err != nil {
		log.Fatal().Err(err).Msg("Error answering query")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Query)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Source)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Content)
}

func exportLocal(ctx context.Context, cfg *config.Config) {
	index, err := chromemdb.NewLocalIndex(localDBPath, localCollection, false, cfg.RAG.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating local index")
	}
	if err := index.Export(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error exporting collection")
	}
	log.Info().Int("chunks", index.Count()).Msg("Exported local collection")
}

func importLocal(ctx context.Context, cfg *config.Config) {
	index, err := chromemdb.NewLocalIndex(localDBPath, localCollection, false, cfg.RAG.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating local index")
	}
	if err := index.Import(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error importing collection")
	}
	log.Info().Int("chunks", index.Count()).Msg("Imported local collection")
}

func deleteQuestion(ctx context.Context, cfg *config.Config, questionID string) {
	service, _, closeDB := buildService(ctx, cfg)
	defer closeDB()

	deleted, err := service.DeleteEmbeddings(ctx, questionID)
	if err != nil {
		log.Fatal().Err(err).Msg("Error deleting embeddings")
	}
	log.Info().Str("question_id", questionID).Int("deleted", deleted).Msg("Deleted embeddings")
}

// deleteQuestionRow removes the question record itself; the chunk
// rows go with it through the ON DELETE CASCADE foreign key.
func deleteQuestionRow(ctx context.Context, cfg *config.Config, questionID string) {
	_, questions, closeDB := buildService(ctx, cfg)
	defer closeDB()

	if err := questions.Delete(ctx, questionID); err != nil {
		log.Fatal().Err(err).Msg("Error deleting question")
	}
	log.Info().Str("question_id", questionID).Msg("Deleted question and its chunks")
}

func resetDatabase(ctx context.Context, cfg *config.Config) {
	dbClient, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	bunDB := db.NewDB(dbClient, cfg.Database.Debug)
	defer bunDB.Close()

	if err := db.DropTables(ctx, bunDB); err != nil {
		log.Fatal().Err(err).Msg("Error dropping tables")
	}
	if err := db.InitDB(ctx, bunDB, cfg.RAG.VectorSize); err != nil {
		log.Fatal().Err(err).Msg("Error recreating tables")
	}
	log.Info().Msg("Database reset")
}

func showStats(ctx context.Context, cfg *config.Config) {
	service, _, closeDB := buildService(ctx, cfg)
	defer closeDB()

	stats, err := service.Stats(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading stats")
	}
	helper.PrettyPrint(stats)
}

func firstLine(text string) string {
	for i, r := range text {
		if r == '\n' {
			return text[:i]
		}
	}
	return text
}
