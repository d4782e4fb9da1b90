package configs

import (
	"sort"
)

// MaskedValue 在诊断输出中替代密钥原文.
const MaskedValue = "********"

// MaskableSecrets 返回日志与诊断输出中必须脱敏的字面值集合（去重，按长度降序，便于先替换较长的值）.
func MaskableSecrets(cfg *AppConfig) []string {
	if cfg == nil {
		return nil
	}

	seen := map[string]struct{}{}

	var out []string

	for _, s := range []string{cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.S3.SessionToken} {
		if s == "" {
			continue
		}

		if _, ok := seen[s]; ok {
			continue
		}

		seen[s] = struct{}{}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })

	return out
}

// Masked 返回密钥字段被替换为 MaskedValue 的副本，供 config debug 等命令打印.
func Masked(cfg AppConfig) AppConfig {
	mask := func(s string) string {
		if s == "" {
			return ""
		}

		return MaskedValue
	}

	cfg.S3.AccessKeyID = mask(cfg.S3.AccessKeyID)
	cfg.S3.SecretAccessKey = mask(cfg.S3.SecretAccessKey)
	cfg.S3.SessionToken = mask(cfg.S3.SessionToken)

	return cfg
}
