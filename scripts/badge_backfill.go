// 手动触发徽章补发脚本
//
// 对所有已知用户（users 表和活动日志中出现过的用户）执行一次全量徽章检查，
// 用于新增徽章定义后或导入历史活动数据后补发遗漏的徽章。重复执行不会重复授予。
//
// 用法: go run scripts/badge_backfill.go [-config configs] [-user <id>]

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sort"
	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/repository"
	"study_buddy_backend/internal/service"
	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/database"
	"study_buddy_backend/pkg/logger"
	"syscall"

	"go.uber.org/zap"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	only := flag.String("user", "", "只检查指定用户")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	activities := repository.NewActivityRepository(db)
	users := repository.NewUserRepository(db)
	ledger := repository.NewUserBadgeRepository(db)

	catalog, err := service.LoadBadgeCatalog(ctx, repository.NewBadgeRepository(db))
	if err != nil {
		log.Fatalf("加载徽章目录失败: %v", err)
	}
	evaluator := service.NewBadgeEvaluator(activities, repository.NewStreakRepository(db), ledger, service.NewActivityTypeNormalizer(cfg.Badges.ActivityAliases))
	checker := service.NewBadgeChecker(catalog, evaluator)

	var ids []string
	if *only != "" {
		ids = []string{util.CanonicalUserID(*only)}
	} else {
		ids, err = knownUsers(ctx, users, activities)
		if err != nil {
			log.Fatalf("读取用户列表失败: %v", err)
		}
	}

	log.Printf("开始补发徽章，共 %d 个用户...", len(ids))
	total, failed := 0, 0
	for _, id := range ids {
		if ctx.Err() != nil {
			log.Println("已中断")
			break
		}
		awarded, err := checker.RetrospectiveCheck(ctx, id)
		if err != nil {
			failed++
			logger.Log.Error("Backfill failed", zap.String("userId", id), zap.Error(err))
			continue
		}
		if len(awarded) > 0 {
			total += len(awarded)
			logger.Log.Info("Backfilled badges", zap.String("userId", id), zap.Int("count", len(awarded)))
		}
	}
	log.Printf("完成！新授予 %d 个徽章，失败 %d 个用户", total, failed)
}

// knownUsers 合并 users 表和活动日志中的用户并去重
func knownUsers(ctx context.Context, users *repository.UserRepository, activities *repository.ActivityRepository) ([]string, error) {
	fromUsers, err := users.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	fromActivities, err := activities.DistinctUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(fromUsers)+len(fromActivities))
	for _, id := range append(fromUsers, fromActivities...) {
		seen[util.CanonicalUserID(id)] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
