package main

import (
	"log"
	"os/signal"
	"syscall"

	"github.com/jjedele/gcp-ai-tf-custom-op-predictor/internal/config"
	"github.com/jjedele/gcp-ai-tf-custom-op-predictor/internal/modeldownloader"
	"github.com/jjedele/gcp-ai-tf-custom-op-predictor/internal/s3"
	"github.com/spf13/cobra"
)

// pullCmd creates a new pull command.
// pull command downloads the packaged model archive from the object store and
// extracts it into the model directory. If the model has already been
// downloaded, this command does nothing.
func pullCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "pull",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Parse(path)
			if err != nil {
				return err
			}
			if err := c.Validate(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer cancel()

			s3Client, err := s3.NewClient(ctx, c.ObjectStore.S3)
			if err != nil {
				return err
			}

			d := modeldownloader.New(c.Model.Dir, s3Client)
			if err := d.Download(ctx, c.Model.ArchiveKey); err != nil {
				return err
			}
			log.Printf("Successfully pulled the model to %q\n", d.ModelDir())
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "config", "", "Path to the config file")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
