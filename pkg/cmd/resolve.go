package cmd

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/uploadgate/pkg/configs"
	"github.com/yeisme/uploadgate/pkg/route"
)

var (
	resolveFilename   string
	resolveResourceID string
	resolveMeta       map[string]string

	// 离线计算一次路由决策，不需要凭证也不访问存储.
	resolveCmd = &cobra.Command{
		Use:   "resolve",
		Short: "dry-run the destination decision for a filename and metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, _, err := configs.Load(configPath)
			if err != nil {
				return err
			}

			cfg := configs.ApplyOverrides(base, overridesFromFlags(cmd))

			r, err := route.New(cfg.Routing.BucketStrategy, cfg.Routing.KeyStrategy, cfg.S3.BucketName)
			if err != nil {
				return err
			}

			dec, err := r.Resolve(route.Input{
				Filename: resolveFilename,
				Metadata: route.Metadata(resolveMeta),
				Request:  route.RequestInfo{ResourceID: resolveResourceID},
			})
			if err != nil {
				return err
			}

			b, err := sonic.ConfigStd.MarshalIndent(dec, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal decision: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			return nil
		},
	}
)

// registerResolveCommand 注册 resolve 命令.
func registerResolveCommand() {
	resolveCmd.Flags().StringVar(&resolveFilename, "filename", "", "original filename of the upload")
	resolveCmd.Flags().StringVar(&resolveResourceID, "resource-id", "", "resource id used by resource-namespaced")
	resolveCmd.Flags().StringToStringVar(&resolveMeta, "meta", nil, "upload metadata as k=v, repeatable")
	addOverrideFlags(resolveCmd)

	rootCmd.AddCommand(resolveCmd)
}
