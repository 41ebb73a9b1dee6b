package rerankd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soundprediction/go-reranker"
	"github.com/soundprediction/go-reranker/pkg/backend"
	"github.com/soundprediction/go-reranker/pkg/config"
	"github.com/soundprediction/go-reranker/pkg/logger"
)

var rankCmd = &cobra.Command{
	Use:   "rank QUERY PASSAGE [PASSAGE...]",
	Short: "Rank passages against a query from the command line",
	Long: `Score the given passages against the query and print them in
descending relevance order. Uses the configured backend without starting
the HTTP service.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRank,
}

var rankJSON bool

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().String("backend", "direct", "Scoring backend (direct, remote, generative)")
	rankCmd.Flags().String("model", "", "Model name")
	rankCmd.Flags().String("base-url", "", "Backend base URL (remote and generative backends)")
	rankCmd.Flags().String("api-key", "", "Backend API key")
	rankCmd.Flags().Bool("no-normalize", false, "Print raw model scores instead of sigmoid-normalized ones")
	rankCmd.Flags().BoolVar(&rankJSON, "json", false, "Emit JSON instead of a table")
}

func runRank(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrideConfigWithFlags(cmd, cfg)

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.Log.Level))

	be, err := backend.New(backend.Config{
		Provider: backend.Provider(cfg.Backend.Provider),
		Model:    cfg.Backend.Model,
		BaseURL:  cfg.Backend.BaseURL,
		APIKey:   cfg.Backend.APIKey,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create backend: %w", err)
	}

	svc := reranker.New(be, nil, reranker.Config{
		Normalize:      cfg.Rerank.Normalize,
		Timeout:        cfg.Rerank.Timeout,
		MaxConcurrency: cfg.Rerank.MaxConcurrency,
	}, log)
	defer svc.Close()

	query, passages := args[0], args[1:]

	ranked, err := svc.RankPassages(cmd.Context(), query, passages, nil)
	if err != nil {
		return fmt.Errorf("ranking failed: %w", err)
	}

	if rankJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ranked)
	}

	for i, r := range ranked {
		fmt.Printf("%2d. %.4f  %s\n", i+1, r.Score, r.Passage)
	}
	return nil
}
