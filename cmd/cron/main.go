package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recharge-service/internal/conf"

	"github.com/gaoyong06/go-pkg/logger"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
	_ "go.uber.org/automaxprocs"
)

var (
	flagconf string
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	// 初始化配置
	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}

	// 初始化日志 (使用 go-pkg/logger)
	logConfig := &logger.Config{
		Level:         "info",
		Format:        "json",
		Output:        "stdout",
		FilePath:      "logs/recharge-cron.log",
		MaxSize:       100,
		MaxAge:        30,
		MaxBackups:    10,
		Compress:      true,
		EnableConsole: true,
	}

	loggerInstance := logger.NewLogger(logConfig)

	// 添加基本字段
	loggerInstance = log.With(loggerInstance,
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.name", "recharge-cron",
	)

	logHelper := log.NewHelper(loggerInstance)

	// 初始化应用
	app, cleanup, err := wireApp(&bc, loggerInstance)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	schedule := newSchedule(bc.Cron)
	jobs := newSweepJobs(app.recharge, schedule.runTimeout, logHelper)

	// 创建定时任务调度器（支持秒级调度）
	cronScheduler := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	// 对账：向渠道查询超过宽限期仍未支付的订单
	if _, err = cronScheduler.AddFunc(schedule.reconcileSpec, jobs.reconcile); err != nil {
		logHelper.Errorf("Failed to add reconcile job: %v", err)
	}
	// 过期关闭
	if _, err = cronScheduler.AddFunc(schedule.expireSpec, jobs.expire); err != nil {
		logHelper.Errorf("Failed to add expire job: %v", err)
	}

	// 启动定时任务
	cronScheduler.Start()
	logHelper.Info("========================================")
	logHelper.Info("Cron jobs started successfully")
	logHelper.Info("Scheduled jobs:")
	logHelper.Infof("  - Reconcile pending orders: %s", schedule.reconcileSpec)
	logHelper.Infof("  - Expire stale orders: %s", schedule.expireSpec)
	logHelper.Info("========================================")

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logHelper.Info("Shutting down gracefully...")

	// 停止定时任务
	ctx := cronScheduler.Stop()
	select {
	case <-ctx.Done():
		logHelper.Info("Cron jobs stopped gracefully")
	case <-time.After(5 * time.Second):
		logHelper.Info("Cron jobs forced to stop after timeout")
	}
}

type schedule struct {
	reconcileSpec string
	expireSpec    string
	runTimeout    time.Duration
}

func newSchedule(c *conf.Cron) schedule {
	s := schedule{
		reconcileSpec: "*/30 * * * * *",
		expireSpec:    "0 * * * * *",
		runTimeout:    5 * time.Minute,
	}
	if c == nil {
		return s
	}
	if c.ReconcileSpec != "" {
		s.reconcileSpec = c.ReconcileSpec
	}
	if c.ExpireSpec != "" {
		s.expireSpec = c.ExpireSpec
	}
	if d := c.RunTimeout.AsDuration(); d > 0 {
		s.runTimeout = d
	}
	return s
}
