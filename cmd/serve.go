package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/sitelens-cli/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr      string
	serveMaxUpload int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis over HTTP",
	Long: `Serve POST /api/analyze (multipart upload, one file field per role),
GET /api/health and GET /metrics until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		opt, err := c.PipelineOptions()
		if err != nil {
			return err
		}
		addr := c.ServeAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		maxMB := c.MaxUploadMB
		if cmd.Flags().Changed("max-upload-mb") {
			maxMB = serveMaxUpload
		}
		srv := server.New(server.Config{
			Addr:        addr,
			MaxUploadMB: maxMB,
			Pipeline:    opt,
			Logger:      logger,
		})
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().IntVar(&serveMaxUpload, "max-upload-mb", 32, "maximum multipart upload size in MB")
}
