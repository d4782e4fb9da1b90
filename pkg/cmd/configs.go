package cmd

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/uploadgate/pkg/app"
	"github.com/yeisme/uploadgate/pkg/configs"
)

var (
	// config 子命令.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "config subcommands",
	}

	// 打印当前使用的配置文件路径.
	pathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the path of the current config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, v, err := configs.Load(configPath)
			if err != nil {
				return err
			}

			cfg := v.ConfigFileUsed()
			if cfg == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no config file used (maybe using defaults or env)")

				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), cfg)

			return nil
		},
	}

	// 以 JSON 打印当前配置，密钥字段被掩码.
	debugCmd = &cobra.Command{
		Use:   "debug",
		Short: "print the current config values with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := configs.Load(configPath)
			if err != nil {
				return err
			}

			b, err := sonic.ConfigStd.MarshalIndent(configs.Masked(c), "", "  ")
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			return nil
		},
	}

	// 执行完整的启动校验但不监听端口.
	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "resolve credentials, apply overrides and validate the config",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ol configs.Overlay

			rt, err := app.Bootstrap(&ol, app.Options{
				ConfigPath: configPath,
				Debug:      debug,
				Overrides:  overridesFromFlags(cmd),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "config ok: driver=%s bucket_strategy=%s key_strategy=%s default_bucket=%q credentials=%s\n",
				rt.Config.S3.Driver, rt.Router.BucketStrategy(), rt.Router.KeyStrategy(),
				rt.Router.DefaultBucket(), rt.Secrets.Credentials())

			return nil
		},
	}
)

// registerConfigsCommands 注册 CLI 子命令.
func registerConfigsCommands() {
	addOverrideFlags(validateCmd)

	configCmd.AddCommand(pathCmd)
	configCmd.AddCommand(debugCmd)
	configCmd.AddCommand(validateCmd)

	rootCmd.AddCommand(configCmd)
}
