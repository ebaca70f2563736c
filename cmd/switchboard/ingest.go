package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/switchboard/internal/cli"
	"github.com/aretw0/switchboard/internal/config"
	"github.com/aretw0/switchboard/pkg/adapters/openai"
	"github.com/aretw0/switchboard/pkg/knowledge"
	"github.com/spf13/cobra"
)

var errNoIndex = errors.New("no index path: set --index or knowledge.index")

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "Index a directory of markdown documents",
	Long: `Loads every markdown document under dir (frontmatter title becomes the source
label, drafts are skipped), splits it into chunks, embeds them and writes the
knowledge index used by the retrieve_context step.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		index, _ := cmd.Flags().GetString("index")
		if index == "" {
			index = cfg.Knowledge.Index
		}
		if index == "" {
			return errNoIndex
		}
		if cmd.Flags().Changed("embedder") {
			cfg.Knowledge.Embedder, _ = cmd.Flags().GetString("embedder")
		}

		var remote knowledge.Embedder
		if cfg.Knowledge.Embedder != config.EmbedderHash {
			client, err := openai.NewClient(openai.Config{
				APIKey:         cfg.LLM.APIKey,
				BaseURL:        cfg.LLM.BaseURL,
				EmbeddingModel: cfg.LLM.EmbeddingModel,
				Timeout:        cfg.Timeouts.Completion,
			})
			if err != nil {
				return err
			}
			remote = client
		}

		chunkSize, _ := cmd.Flags().GetInt("chunk-size")
		overlap, _ := cmd.Flags().GetInt("chunk-overlap")

		res, err := cli.Ingest(cmd.Context(), args[0], index, cli.SelectEmbedder(cfg, remote), logger,
			knowledge.WithChunking(chunkSize, overlap))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents (%d chunks) into %s\n", res.Documents, res.Chunks, index)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().String("index", "", "Index file to write (overrides knowledge.index)")
	ingestCmd.Flags().String("embedder", "", "Embedder: openai or hash")
	ingestCmd.Flags().Int("chunk-size", knowledge.DefaultChunkSize, "Chunk size in runes")
	ingestCmd.Flags().Int("chunk-overlap", knowledge.DefaultChunkOverlap, "Overlap between chunks in runes")
}
