// Package log 提供基于 zerolog 的日志工具，支持 stderr 和文件输出（lumberjack 轮转）.
// 所有输出都经过 RedactWriter，凭证等敏感字面值在写入任何输出前被替换.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yeisme/uploadgate/pkg/configs"
)

var (
	logger   zerolog.Logger
	redactor = NewRedactWriter(os.Stderr)
	initOnce sync.Once
)

// Init 初始化全局 logger，只有第一次调用生效.
func Init(cfg configs.LogConfig, debug bool) {
	initOnce.Do(func() {
		initLogger(cfg, debug)
	})
}

// initLogger 实际执行一次的初始化函数.
func initLogger(logCfg configs.LogConfig, debug bool) {
	// level
	lvl, err := zerolog.ParseLevel(strings.ToLower(logCfg.Level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q, defaulting to info\n", logCfg.Level)

		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)

	// outputs
	var writers []io.Writer

	if logCfg.Format == "json" {
		writers = append(writers, os.Stderr)
	} else {
		console := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stderr
			w.TimeFormat = time.Kitchen
		})
		writers = append(writers, console)
	}

	if logCfg.EnableFile {
		lj := &lumberjack.Logger{
			Filename:   logCfg.FilePath,
			MaxSize:    logCfg.MaxSize,
			MaxBackups: logCfg.MaxBackups,
			MaxAge:     logCfg.MaxAge,
			Compress:   logCfg.Compress,
		}
		writers = append(writers, lj)
	}

	redactor.SetOutput(io.MultiWriter(writers...))

	ctx := zerolog.New(redactor).With().Str("app", configs.AppName)
	if debug {
		ctx = ctx.Caller().Stack()

		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger = ctx.Timestamp().Logger()

	log.Logger = logger
}

// Logger 返回全局 logger. 未调用 Init 时输出到 stderr（同样经过脱敏）.
func Logger() *zerolog.Logger {
	return &logger
}

// SetRedactions 设置需要脱敏的字面值，通常传入 configs.MaskableSecrets 的结果.
func SetRedactions(secrets []string) {
	redactor.SetSecrets(secrets)
}

// GinWriter 把 Gin 文本行转发为 zerolog 事件.
type GinWriter struct {
	logger *zerolog.Logger
	level  zerolog.Level
}

func NewGinWriter(logger *zerolog.Logger, level zerolog.Level) *GinWriter {
	return &GinWriter{logger: logger, level: level}
}

func (w *GinWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	// 使用指定级别记录（按需可扩展解析 level）
	switch w.level {
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		w.logger.Error().Msg(msg)
	case zerolog.WarnLevel:
		w.logger.Warn().Msg(msg)
	default:
		w.logger.Info().Msg(msg)
	}

	return len(p), nil
}

func init() {
	logger = zerolog.New(redactor).With().Timestamp().Logger()
}
