// Package main implements the filingrag CLI for ingesting SEC filings and
// answering questions over them.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/filingsight/filingrag/internal/config"
	"github.com/filingsight/filingrag/internal/document"
	"github.com/filingsight/filingrag/internal/embeddings"
	"github.com/filingsight/filingrag/internal/generation"
	"github.com/filingsight/filingrag/internal/ingest"
	"github.com/filingsight/filingrag/internal/logging"
	"github.com/filingsight/filingrag/internal/ragengine"
	"github.com/filingsight/filingrag/internal/vectorstore"
)

// sourcePreviewLength is the number of characters of each retrieved source
// shown in query output. The full text stays in the index; truncation is
// display-only.
const sourcePreviewLength = 200

var (
	configPath  string
	queryTicker string
	queryK      int

	version = "dev"
)

func main() {
	// Local .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "filingrag",
	Short: "Question answering over SEC filings",
	Long: `filingrag ingests SEC filings into a local vector index and answers
natural-language questions about them, grounding every answer in
retrieved filing excerpts.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	queryCmd.Flags().StringVar(&queryTicker, "ticker", "", "restrict retrieval to one ticker (e.g. AAPL)")
	queryCmd.Flags().IntVar(&queryK, "k", 0, "number of chunks to retrieve (default from config)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(statsCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest the raw filing corpus into the vector index",
	Long: `Ingest walks the raw filing corpus, cleans and chunks every document,
writes the processed-chunks snapshot, and loads the chunks into the
vector index in embedded batches.

Re-running ingest over the same corpus overwrites records in place.

Examples:
  filingrag ingest
  filingrag ingest --config config.yaml
  FILINGRAG_INGEST_RAW_DIR=/data/filings filingrag ingest`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a question from indexed filings",
	Long: `Query embeds the question, retrieves the most similar filing chunks,
and generates a grounded answer. Retrieved sources are printed after
the answer with a short text preview.

Examples:
  filingrag query "What were the main revenue drivers?"
  filingrag query --ticker AAPL "What risks does the company highlight?"
  filingrag query --ticker MSFT --k 3 "How did cloud revenue develop?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Long: `Stats reports the number of indexed chunks and the tracked ticker
catalog.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

// setup loads configuration and builds the logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newStore(cfg *config.Config, logger *zap.Logger) (vectorstore.Store, error) {
	return vectorstore.New(vectorstore.Config{
		Backend:    cfg.Index.Backend,
		Path:       cfg.Index.Path,
		Collection: cfg.Index.Collection,
		VectorSize: cfg.Index.VectorSize,
		Host:       cfg.Index.Host,
		Port:       cfg.Index.Port,
		UseTLS:     cfg.Index.UseTLS,
	}, logger)
}

func newEmbedder(cfg *config.Config) (embeddings.Provider, error) {
	return embeddings.NewProvider(embeddings.Config{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.BaseURL,
		CacheDir: cfg.Embedding.CacheDir,
	})
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	chunker, err := document.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap, cfg.Chunking.MinLength)
	if err != nil {
		return err
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	pipeline, err := ingest.NewPipeline(ingest.Config{
		RawDir:       cfg.Ingest.RawDir,
		ProcessedDir: cfg.Ingest.ProcessedDir,
		ManifestPath: cfg.Ingest.Manifest,
		BatchSize:    cfg.Ingest.BatchSize,
		Workers:      cfg.Ingest.Workers,
	}, chunker, embedder, store, logger)
	if err != nil {
		return err
	}

	summary, err := pipeline.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d documents (%d skipped): %d chunks in %d batches\n",
		summary.Documents, summary.Skipped, summary.Chunks, summary.Batches)
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	generator, err := generation.NewOllamaGenerator(generation.OllamaConfig{
		Model:             cfg.Generation.Model,
		ServerURL:         cfg.Generation.ServerURL,
		RequestsPerSecond: cfg.Generation.RequestsPerSecond,
	})
	if err != nil {
		return err
	}

	engine, err := ragengine.NewEngine(embedder, store, generator, logger)
	if err != nil {
		return err
	}

	k := queryK
	if k == 0 {
		k = cfg.Retrieval.TopK
	}

	record, err := engine.Query(cmd.Context(), ragengine.Query{
		Question: strings.Join(args, " "),
		Ticker:   queryTicker,
		K:        k,
	})
	if err != nil {
		return err
	}

	fmt.Println(record.Answer)
	if len(record.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, s := range record.Sources {
			fmt.Printf("  [%d] %s %s: %s\n", i+1, s.Ticker, s.FilingType, preview(s.Text))
		}
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	count, err := store.Count(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Indexed chunks: %d\n", count)
	fmt.Printf("Tracked tickers (%d): %s\n", len(cfg.Catalog), strings.Join(cfg.Catalog, ", "))
	return nil
}

// preview truncates source text for display.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= sourcePreviewLength {
		return text
	}
	return string(runes[:sourcePreviewLength]) + "..."
}
