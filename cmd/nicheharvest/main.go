package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/RecoveryAshes/nicheharvest/internal/config"
	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/RecoveryAshes/nicheharvest/internal/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	envFile    string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers        []string // 自定义HTTP请求头
	validateConfig bool     // 验证配置文件
	initConfig     bool     // 生成配置模板

	// 抓取参数
	platformFilter []string
	mode           string
	maxWorkers     int
	maxRetries     int
	headless       bool
	outputDir      string
	noProgress     bool
	noHandoff      bool
)

// appConfig 由 PersistentPreRunE 加载
var appConfig *models.Config

var rootCmd = &cobra.Command{
	Use:   "nicheharvest",
	Short: "多平台细分领域数据抓取工具",
	Long: `NicheHarvest - 多平台细分领域数据抓取工具

从以下平台抓取热门内容, 用于寻找联盟营销的细分领域:
  • TikTok 话题
  • Amazon 畅销榜
  • Reddit 帖子
  • YouTube 搜索结果

支持代理轮换、UA轮换、验证页检测、浏览器升级和人工处理验证。

使用示例:
  # 生成配置模板
  nicheharvest --init-config

  # 使用配置文件抓取全部平台
  nicheharvest -c configs/config.yaml

  # 只抓取部分平台, 追加请求头
  nicheharvest -p reddit -p youtube -H "Accept-Language: en-GB"

  # 验证配置文件
  nicheharvest --validate-config

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env 不存在时忽略
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("加载环境变量文件失败: %w", err)
		}

		if initConfig {
			return nil
		}

		cfg, err := config.NewLoader(configFile).Load()
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		appConfig = cfg

		// 初始化日志系统
		logConfig := utils.LogConfig{
			Level:      cfg.Logging.Level,
			LogDir:     cfg.Logging.LogDir,
			MaxSize:    cfg.Logging.Rotation.MaxSize,
			MaxBackups: cfg.Logging.Rotation.MaxBackups,
			MaxAge:     cfg.Logging.Rotation.MaxAge,
			Compress:   cfg.Logging.Rotation.Compress,
		}

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		}
		if verbose {
			logConfig.Level = "debug"
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if verbose {
			utils.Info("详细模式已启用")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if initConfig {
			return writeTemplate(cmd)
		}
		if validateConfig {
			return runValidateConfig(cmd.OutOrStdout(), appConfig)
		}
		return runHarvest(cmd, appConfig)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("NicheHarvest %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// writeTemplate 生成配置模板
func writeTemplate(cmd *cobra.Command) error {
	path := configFile
	if path == "" {
		path = config.DefaultConfigFile
	}
	written, err := config.WriteTemplate(path)
	if err != nil {
		return err
	}
	if !written {
		fmt.Fprintf(cmd.OutOrStdout(), "配置文件已存在, 未覆盖: %s\n", path)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ 已生成配置模板: %s\n", path)
	return nil
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径 (默认搜索 ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "环境变量文件")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.Flags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件正确性")
	rootCmd.Flags().BoolVar(&initConfig, "init-config", false, "生成配置模板后退出")

	// 抓取参数
	rootCmd.Flags().StringSliceVarP(&platformFilter, "platform", "p", []string{}, "只抓取指定平台 (tiktok|amazon|reddit|youtube),可多次指定")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", modeConfig, "抓取模式 (config|browser|direct)")
	rootCmd.Flags().IntVarP(&maxWorkers, "workers", "w", 0, "最大并发任务数 (默认使用配置文件)")
	rootCmd.Flags().IntVarP(&maxRetries, "retries", "r", 0, "每次抓取最大尝试次数 (默认使用配置文件)")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "输出目录 (默认使用配置文件)")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "不显示进度条")
	rootCmd.Flags().BoolVar(&noHandoff, "no-handoff", false, "关闭人工处理, 验证页直接计为失败")

	// 添加子命令
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(programsCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
