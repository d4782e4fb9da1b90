package log

import (
	"io"
	"sort"
	"strings"
	"sync"
)

// Redacted 替换敏感字面值的文本.
const Redacted = "[REDACTED]"

// RedactWriter 在写入下游之前替换所有敏感字面值. zerolog 每条日志调用一次 Write，
// 因此按条替换即可覆盖完整的一行.
type RedactWriter struct {
	mu       sync.RWMutex
	out      io.Writer
	replacer *strings.Replacer
}

// NewRedactWriter 创建脱敏 writer，out 为 nil 时丢弃输出.
func NewRedactWriter(out io.Writer) *RedactWriter {
	if out == nil {
		out = io.Discard
	}

	return &RedactWriter{out: out}
}

// SetOutput 替换下游输出.
func (w *RedactWriter) SetOutput(out io.Writer) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.out = out
}

// SetSecrets 设置需要替换的字面值，空字符串会被忽略. 较长的值优先匹配.
func (w *RedactWriter) SetSecrets(secrets []string) {
	vals := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s != "" {
			vals = append(vals, s)
		}
	}

	sort.SliceStable(vals, func(i, j int) bool { return len(vals[i]) > len(vals[j]) })

	var r *strings.Replacer

	if len(vals) > 0 {
		pairs := make([]string, 0, len(vals)*2)
		for _, s := range vals {
			pairs = append(pairs, s, Redacted)
		}

		r = strings.NewReplacer(pairs...)
	}

	w.mu.Lock()
	w.replacer = r
	w.mu.Unlock()
}

// Write 实现 io.Writer. 返回值按输入长度计算，替换造成的长度变化对调用方透明.
func (w *RedactWriter) Write(p []byte) (int, error) {
	w.mu.RLock()
	out, r := w.out, w.replacer
	w.mu.RUnlock()

	if r == nil {
		return out.Write(p)
	}

	if _, err := io.WriteString(out, r.Replace(string(p))); err != nil {
		return 0, err
	}

	return len(p), nil
}
