package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yeisme/uploadgate/pkg/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the upload gateway HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.NewApp(app.Options{
			ConfigPath: configPath,
			Debug:      debug,
			Overrides:  overridesFromFlags(cmd),
		})
		if err != nil {
			return err
		}

		return a.Run(ctx)
	},
}

// registerServeCommand 注册 serve 命令.
func registerServeCommand() {
	addOverrideFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}
