package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/uploadgate/pkg/route"
)

var strategiesCmd = &cobra.Command{
	Use:     "strategies",
	Short:   "list all registered routing strategies",
	Aliases: []string{"ls"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "Bucket strategies:")

		for _, s := range route.BucketStrategies() {
			fmt.Fprintln(cmd.OutOrStdout(), "   - "+s)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Key strategies:")

		for _, s := range route.KeyStrategies() {
			fmt.Fprintln(cmd.OutOrStdout(), "   - "+s)
		}
	},
}

// registerStrategiesCommand 注册 strategies 命令.
func registerStrategiesCommand() {
	rootCmd.AddCommand(strategiesCmd)
}
