package subscriber

import (
	"context"
	"errors"
	"fmt"

	"github.com/readmegen/backend/internal/eventbus"
	"github.com/readmegen/backend/internal/model"
	"github.com/readmegen/backend/internal/repository"
	"k8s.io/klog/v2"
)

// HistorySubscriber 把生成结果和评分写入历史记录。
// 请求未携带 owner key 时不记录。
type HistorySubscriber struct {
	historyRepo repository.HistoryRepository
}

func NewHistorySubscriber(historyRepo repository.HistoryRepository) *HistorySubscriber {
	return &HistorySubscriber{historyRepo: historyRepo}
}

func (s *HistorySubscriber) Register(bus *eventbus.ReadmeEventBus) {
	if bus == nil {
		return
	}
	bus.Subscribe(eventbus.ReadmeEventGenerated, s.handleGenerated)
	bus.Subscribe(eventbus.ReadmeEventScored, s.handleScored)
}

func (s *HistorySubscriber) handleGenerated(ctx context.Context, event eventbus.ReadmeEvent) error {
	if event.OwnerKey == "" || event.Content == "" {
		return nil
	}
	h := &model.ReadmeHistory{
		OwnerKey:      event.OwnerKey,
		RepoURL:       event.RepoURL,
		RepoName:      event.RepoName,
		RepoOwner:     event.RepoOwner,
		ReadmeContent: event.Content,
	}
	if err := s.historyRepo.CreateVersioned(ctx, h); err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	klog.V(6).Infof("历史记录已保存: repo=%s, version=%d", event.RepoURL, h.Version)
	return nil
}

// handleScored 分数写到该仓库最新的一条历史上
func (s *HistorySubscriber) handleScored(ctx context.Context, event eventbus.ReadmeEvent) error {
	if event.OwnerKey == "" || event.RepoURL == "" {
		return nil
	}
	latest, err := s.historyRepo.GetLatest(ctx, event.OwnerKey, event.RepoURL)
	if errors.Is(err, repository.ErrNotFound) {
		klog.V(6).Infof("评分对应的历史不存在，跳过: repo=%s", event.RepoURL)
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.historyRepo.UpdateScore(ctx, latest.ID, event.Score); err != nil {
		return fmt.Errorf("update history score: %w", err)
	}
	klog.V(6).Infof("历史评分已更新: repo=%s, score=%d", event.RepoURL, event.Score)
	return nil
}
