package service

import (
	"context"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UserBadgeReader 查询用户已获得徽章的明细
type UserBadgeReader interface {
	ListByUser(ctx context.Context, userID string) ([]model.UserBadge, error)
}

type BadgeView struct {
	BadgeDefinition
	Criterion CriterionInfo `json:"criterion"`
}

type UserBadgeView struct {
	BadgeView
	AwardedAt time.Time `json:"awardedAt"`
}

type BadgeService struct {
	Catalog     *BadgeCatalog
	Checker     *BadgeChecker
	UserBadges  UserBadgeReader
	Publisher   AwardPublisher
	Concurrency int
}

func NewBadgeService(catalog *BadgeCatalog, checker *BadgeChecker, userBadges UserBadgeReader, publisher AwardPublisher, concurrency int) *BadgeService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BadgeService{
		Catalog:     catalog,
		Checker:     checker,
		UserBadges:  userBadges,
		Publisher:   publisher,
		Concurrency: concurrency,
	}
}

func toView(def BadgeDefinition) BadgeView {
	return BadgeView{BadgeDefinition: def, Criterion: DescribeCriterion(def.Criterion)}
}

// ListAvailable 全部徽章
func (s *BadgeService) ListAvailable() []BadgeView {
	defs := s.Catalog.All()
	out := make([]BadgeView, 0, len(defs))
	for _, d := range defs {
		out = append(out, toView(d))
	}
	return out
}

// ListUserBadges 用户已获得的徽章，不在目录中的历史记录会被忽略
func (s *BadgeService) ListUserBadges(ctx context.Context, userID string) ([]UserBadgeView, error) {
	rows, err := s.UserBadges.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]UserBadgeView, 0, len(rows))
	for _, r := range rows {
		def, ok := s.Catalog.Get(r.BadgeID)
		if !ok {
			logger.Log.Debug("Held badge missing from catalog", zap.String("userId", userID), zap.Uint("badgeId", r.BadgeID))
			continue
		}
		out = append(out, UserBadgeView{BadgeView: toView(def), AwardedAt: r.AwardedAt})
	}
	return out, nil
}

// Progress 并发计算全部徽章的进度，结果顺序与目录一致。已持有的徽章直接视为达成
func (s *BadgeService) Progress(ctx context.Context, userID string) ([]BadgeProgress, error) {
	heldIDs, err := s.Checker.Ledger.HeldBadgeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	held := distinctIDs(heldIDs)

	defs := s.Catalog.All()
	out := make([]BadgeProgress, len(defs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)
	for i, def := range defs {
		i, def := i, def
		g.Go(func() error {
			p := s.Checker.Evaluator.Evaluate(gctx, userID, def)
			if _, ok := held[def.ID]; ok {
				p.IsEarned = true
				if p.Progress < p.TotalRequired {
					p.Progress = p.TotalRequired
				}
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckAll 全量补发并推送
func (s *BadgeService) CheckAll(ctx context.Context, userID string) ([]AwardedBadge, error) {
	awarded, err := s.Checker.RetrospectiveCheck(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(awarded) > 0 && s.Publisher != nil {
		if err := s.Publisher.PublishAwards(ctx, userID, awarded); err != nil {
			logger.Log.Warn("Failed to publish badge awards", zap.String("userId", userID), zap.Error(err))
		}
	}
	return awarded, nil
}
