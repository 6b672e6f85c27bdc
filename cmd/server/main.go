package main

import (
	"flag"
	"log"

	"k8s.io/klog/v2"

	"github.com/readmegen/backend/config"
	"github.com/readmegen/backend/internal/eventbus"
	"github.com/readmegen/backend/internal/handler"
	"github.com/readmegen/backend/internal/pkg/database"
	"github.com/readmegen/backend/internal/pkg/github"
	"github.com/readmegen/backend/internal/pkg/llm"
	"github.com/readmegen/backend/internal/repository"
	"github.com/readmegen/backend/internal/router"
	"github.com/readmegen/backend/internal/service"
	"github.com/readmegen/backend/internal/subscriber"
)

func main() {
	// 初始化 klog
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	klog.V(6).Info("服务启动中...")

	cfg := config.GetConfig()
	if cfg.LLM.APIKey == "" {
		klog.Warningf("未配置 LLM API Key，生成类接口将返回 500")
	}

	// 初始化数据库
	db, err := database.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 初始化 Repository
	historyRepo := repository.NewHistoryRepository(db)
	shareRepo := repository.NewShareRepository(db)
	brandingRepo := repository.NewBrandingRepository(db)

	// 事件总线：生成/评分结果写入历史
	bus := eventbus.NewReadmeEventBus()
	subscriber.NewHistorySubscriber(historyRepo).Register(bus)

	// 初始化 Service
	builder := github.NewBuilder(github.NewClient(cfg.GitHub))
	readmeService := service.NewReadmeService(cfg.LLM, builder, llm.NewClient(cfg.LLM), bus)

	// 设置路由
	r := router.Setup(cfg, router.Handlers{
		Readme:   handler.NewReadmeHandler(readmeService),
		History:  handler.NewHistoryHandler(service.NewHistoryService(historyRepo)),
		Share:    handler.NewShareHandler(service.NewShareService(shareRepo, brandingRepo)),
		Branding: handler.NewBrandingHandler(service.NewBrandingService(brandingRepo)),
		Preset:   handler.NewPresetHandler(service.NewPresetService()),
	})

	log.Printf("Server starting on port %s...", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
