package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/spec-kit/ticket-warehouse/internal/config"
	"github.com/spec-kit/ticket-warehouse/internal/domain"
	"github.com/spec-kit/ticket-warehouse/internal/source"
)

var vocabularySources []string

var vocabularyCmd = &cobra.Command{
	Use:   "vocabulary",
	Short: "Show the active status vocabularies",
	Long:  `Print how each source's raw status tokens map to warehouse statuses. Tokens not listed are stored without a status.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		systems, err := parseSources(vocabularySources, cfg)
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"Source", "Version", "Token", "Status"})
		table.SetBorder(false)
		table.SetAutoWrapText(false)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		for _, system := range systems {
			vocab, err := source.LoadVocabulary(system, cfg.Pipeline.VocabularyDir)
			if err != nil {
				return err
			}
			for _, token := range vocab.Tokens() {
				table.Append([]string{string(system), fmt.Sprint(vocab.Version), token, string(vocab.Statuses[token])})
			}
		}
		table.Render()
		return nil
	},
}

func init() {
	vocabularyCmd.Flags().StringSliceVar(&vocabularySources, "source", nil, "source system to show (octa, sults); repeatable, defaults to all")
}

func parseSources(names []string, cfg *config.Config) ([]domain.SourceSystem, error) {
	if len(names) == 0 {
		names = cfg.SourceNames()
	}
	systems := make([]domain.SourceSystem, 0, len(names))
	for _, name := range names {
		system, err := domain.ParseSourceSystem(name)
		if err != nil {
			return nil, err
		}
		systems = append(systems, system)
	}
	return systems, nil
}
