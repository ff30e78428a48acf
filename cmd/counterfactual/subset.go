package main

import (
	"github.com/spf13/cobra"

	"github.com/maia-posternack/anadol-counterfactual/internal/builder"
)

func newSubsetCmd() *cobra.Command {
	var (
		srcDir string
		dstDir string
		size   int
	)

	cmd := &cobra.Command{
		Use:   "subset",
		Short: "Sample a smaller aligned space from a built one",
		Long:  "Draw a uniform random sample of records from a built space and write a\nnew, fully aligned artifact set. Useful for fast local iteration.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if srcDir == "" {
				srcDir = cfg.Space.Dir
			}
			log := newLogger(cfg)
			return builder.SubsetDir(log, srcDir, dstDir, size)
		},
	}

	cmd.Flags().StringVar(&srcDir, "src", "", "source artifact directory (defaults to configured space dir)")
	cmd.Flags().StringVar(&dstDir, "dst", "outputs/latent_space_subset", "destination artifact directory")
	cmd.Flags().IntVarP(&size, "size", "n", 500, "number of records to sample")
	return cmd
}
