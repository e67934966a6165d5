package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/img-hub/img-hub/internal/assets"
	"github.com/img-hub/img-hub/internal/config"
	"github.com/img-hub/img-hub/internal/fetch"
	"github.com/img-hub/img-hub/internal/loader"
	"github.com/img-hub/img-hub/internal/logging"
	"github.com/img-hub/img-hub/internal/server"
	"github.com/img-hub/img-hub/internal/server/routes"
	"github.com/img-hub/img-hub/internal/tiered"
	"github.com/img-hub/img-hub/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["storage_path"] = cfg.Global.StoragePath
		fields["memory_limit_bytes"] = cfg.Global.MaxMemoryCache
		fields["allowed_hosts"] = len(cfg.Global.AllowedHosts)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// CLI 启动遵循“配置 → 磁盘缓存 → 两级协调器 → 回源组件 → Fiber server”
	// 顺序，保证所有请求共享同一套加载器注册表与缓存实例。
	store := server.BuildStore(cfg, logger)

	coordinator, err := tiered.New(tiered.Options{
		CostLimit: cfg.Global.MaxMemoryCache,
		Disk:      store,
		Logger:    logger,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化内存缓存失败: %v\n", err)
		return 1
	}
	defer coordinator.Close()

	httpClient := fetch.NewClient(cfg)
	fetcher := fetch.NewHTTPFetcher(fetch.Options{
		Client:         httpClient,
		Logger:         logger,
		MaxAssetSize:   cfg.Global.MaxAssetSize,
		MaxRetries:     cfg.Global.MaxRetries,
		InitialBackoff: cfg.Global.InitialBackoff.DurationValue(),
	})
	validator := fetch.NewURLValidator(cfg.Global.AllowedHosts)

	registry, err := loader.NewRegistry(loader.RegistryOptions{
		Cache:     coordinator,
		Fetcher:   fetcher,
		Validator: validator,
		Logger:    logger,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "构建加载器注册表失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["storage_path"] = cfg.Global.StoragePath
	fields["memory_limit_bytes"] = cfg.Global.MaxMemoryCache
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, coordinator, registry, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("img-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 IMG_HUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("IMG_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(cfg *config.Config, coordinator *tiered.Coordinator, registry *loader.Registry, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	handler := assets.NewHandler(registry, logger, cfg.Global.RequestWaitTimeout.DurationValue())
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Assets:     handler,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterCacheRoutes(app, routes.CacheRouteOptions{
		Coordinator: coordinator,
		Registry:    registry,
		Logger:      logger,
	})

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
