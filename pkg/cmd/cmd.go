// Package cmd contains the command line applications for the project.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/uploadgate/pkg/configs"
)

var (
	configPath string
	debug      bool

	bucketStrategy string
	keyStrategy    string
	defaultBucket  string

	rootCmd = &cobra.Command{
		Use:          "uploadgate",
		Short:        "Upload gateway that routes browser uploads to S3 compatible storage",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging and gin debug mode")

	registerServeCommand()
	registerConfigsCommands()
	registerStrategiesCommand()
	registerResolveCommand()
}

// addOverrideFlags 为需要完整启动流程的命令添加覆盖项参数.
func addOverrideFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&bucketStrategy, "bucket-strategy", "", "override routing.bucket_strategy")
	cmd.Flags().StringVar(&keyStrategy, "key-strategy", "", "override routing.key_strategy")
	cmd.Flags().StringVar(&defaultBucket, "default-bucket", "", "override s3.bucket_name")
}

// overridesFromFlags 只有显式传入的参数才成为覆盖项.
func overridesFromFlags(cmd *cobra.Command) configs.Overrides {
	var o configs.Overrides

	if cmd.Flags().Changed("bucket-strategy") {
		o.BucketStrategy = &bucketStrategy
	}

	if cmd.Flags().Changed("key-strategy") {
		o.KeyStrategy = &keyStrategy
	}

	if cmd.Flags().Changed("default-bucket") {
		o.DefaultBucket = &defaultBucket
	}

	return o
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
