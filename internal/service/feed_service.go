package service

import (
	"Ripple/internal/api/config"
	"Ripple/internal/api/dto"
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/eventbus"
	"Ripple/internal/pkg/metrics"
	"Ripple/internal/pkg/ranking"
	"Ripple/internal/pkg/redis"
	"Ripple/internal/pkg/util"
	"Ripple/internal/repository"
	"context"
	"fmt"
	log "log/slog"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100

	// candidateCap 单次排序的候选集上限,控制扫描成本
	candidateCap = 500

	favoriteTagsTTL = 10 * time.Minute
)

// FeedService 信息流服务接口定义
type FeedService interface {
	GetUserFeed(ctx context.Context, userID uint64, query *dto.PageQuery) (*dto.FeedPageDTO, error)
	GetForYouFeed(ctx context.Context, userID uint64, query *dto.PageQuery) (*dto.FeedPageDTO, error)
	GetTrendingFeed(ctx context.Context, query *dto.PageQuery) (*dto.FeedPageDTO, error)
	GetNewestFeed(ctx context.Context, query *dto.PageQuery) (*dto.FeedPageDTO, error)
	PrewarmDiscovery(ctx context.Context) error
	HandleNewPost(ctx context.Context, evt eventbus.Event) error
	HandleFollowChanged(ctx context.Context, evt eventbus.Event) error
}

type feedServiceImpl struct {
	contentRepo repository.ContentRepo
	followRepo  repository.FollowRepo
	tagRepo     repository.TagAffinityRepo
	bus         *eventbus.Bus
}

func NewFeedService(content repository.ContentRepo, follow repository.FollowRepo, tag repository.TagAffinityRepo, bus *eventbus.Bus) FeedService {
	return &feedServiceImpl{
		contentRepo: content,
		followRepo:  follow,
		tagRepo:     tag,
		bus:         bus,
	}
}

// GetUserFeed 个性化信息流。零信号用户(无关注且无偏好)退回冷启动排序,
// 并在第一页请求时发出一次冷启动信号。
func (s *feedServiceImpl) GetUserFeed(ctx context.Context, userID uint64, query *dto.PageQuery) (*dto.FeedPageDTO, error) {
	limit, skip, page := normalizePage(query)

	key := fmt.Sprintf("%s%d:p%d:l%d", consts.UserFeedKey, userID, page, limit)
	if cached := s.readCachedPage(ctx, key); cached != nil {
		return cached, nil
	}

	followingIDs, err := s.followRepo.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	favorites, err := s.favoriteTags(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	window := now.AddDate(0, 0, -config.Cfg.Feed.RankedWindowDays)

	var ranked ranking.Page
	if len(followingIDs) == 0 && len(favorites) == 0 {
		recent, err := s.contentRepo.ListRecent(ctx, window, candidateCap)
		if err != nil {
			return nil, err
		}
		ranked = ranking.Ranked(recent, nil, limit, skip, now, s.rankOptions())

		if page == 1 {
			metrics.ColdStartSignals.Inc()
			s.bus.Publish(ctx, eventbus.Event{
				Type:    consts.EventColdStart,
				Payload: dto.ColdStartDTO{UserID: userID},
			})
		}
	} else {
		candidates, err := s.contentRepo.ListCandidates(ctx, window, followingIDs, favorites, candidateCap)
		if err != nil {
			return nil, err
		}
		ranked = ranking.Personalized(candidates, followingIDs, favorites, limit, skip, now)
	}

	result := toFeedPage(ranked)
	s.warmPage(ctx, key, result, consts.FeedCacheTag, viewerTag(userID))
	return result, nil
}

// GetForYouFeed 冷启动打分流,偏好标签参与加权
func (s *feedServiceImpl) GetForYouFeed(ctx context.Context, userID uint64, query *dto.PageQuery) (*dto.FeedPageDTO, error) {
	limit, skip, page := normalizePage(query)

	key := fmt.Sprintf("%s%d:p%d:l%d", consts.ForYouFeedKey, userID, page, limit)
	if cached := s.readCachedPage(ctx, key); cached != nil {
		return cached, nil
	}

	favorites, err := s.favoriteTags(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	window := now.AddDate(0, 0, -config.Cfg.Feed.RankedWindowDays)
	recent, err := s.contentRepo.ListRecent(ctx, window, candidateCap)
	if err != nil {
		return nil, err
	}

	result := toFeedPage(ranking.Ranked(recent, favorites, limit, skip, now, s.rankOptions()))
	s.warmPage(ctx, key, result, consts.FeedCacheTag, viewerTag(userID))
	return result, nil
}

// GetTrendingFeed 热门流,全站共享
func (s *feedServiceImpl) GetTrendingFeed(ctx context.Context, query *dto.PageQuery) (*dto.FeedPageDTO, error) {
	limit, skip, page := normalizePage(query)

	key := fmt.Sprintf("%s:p%d:l%d", consts.TrendingFeedKey, page, limit)
	if cached := s.readCachedPage(ctx, key); cached != nil {
		return cached, nil
	}

	now := time.Now()
	window := now.AddDate(0, 0, -config.Cfg.Feed.TrendingWindowDays)
	recent, err := s.contentRepo.ListRecent(ctx, window, candidateCap)
	if err != nil {
		return nil, err
	}

	result := toFeedPage(ranking.Trending(recent, limit, skip, now, s.trendingOptions()))
	s.warmPage(ctx, key, result, consts.FeedCacheTag)
	return result, nil
}

// GetNewestFeed 最新流,全站共享
func (s *feedServiceImpl) GetNewestFeed(ctx context.Context, query *dto.PageQuery) (*dto.FeedPageDTO, error) {
	limit, skip, page := normalizePage(query)

	key := fmt.Sprintf("%s:p%d:l%d", consts.NewestFeedKey, page, limit)
	if cached := s.readCachedPage(ctx, key); cached != nil {
		return cached, nil
	}

	now := time.Now()
	window := now.AddDate(0, 0, -config.Cfg.Feed.TrendingWindowDays)
	recent, err := s.contentRepo.ListRecent(ctx, window, candidateCap)
	if err != nil {
		return nil, err
	}

	result := toFeedPage(ranking.Newest(recent, limit, skip))
	s.warmPage(ctx, key, result, consts.FeedCacheTag)
	return result, nil
}

// PrewarmDiscovery 重算热门流与最新流的第一页并预热缓存,由定时任务调用
func (s *feedServiceImpl) PrewarmDiscovery(ctx context.Context) error {
	now := time.Now()
	window := now.AddDate(0, 0, -config.Cfg.Feed.TrendingWindowDays)
	recent, err := s.contentRepo.ListRecent(ctx, window, candidateCap)
	if err != nil {
		return err
	}

	trending := toFeedPage(ranking.Trending(recent, defaultPageLimit, 0, now, s.trendingOptions()))
	s.warmPage(ctx, fmt.Sprintf("%s:p1:l%d", consts.TrendingFeedKey, defaultPageLimit), trending, consts.FeedCacheTag)

	newest := toFeedPage(ranking.Newest(recent, defaultPageLimit, 0))
	s.warmPage(ctx, fmt.Sprintf("%s:p1:l%d", consts.NewestFeedKey, defaultPageLimit), newest, consts.FeedCacheTag)

	log.InfoContext(ctx, "discovery feeds prewarmed", "candidates", len(recent))
	return nil
}

// HandleNewPost 新内容会影响任意观众的信息流,整体失效
func (s *feedServiceImpl) HandleNewPost(ctx context.Context, evt eventbus.Event) error {
	_, err := redis.Attempt(ctx, "feed cache invalidate", func(c context.Context) (struct{}, error) {
		return struct{}{}, redis.InvalidateByTags(c, consts.FeedCacheTag)
	}, redis.AttemptOptions[struct{}]{})
	return err
}

// HandleFollowChanged 关注关系变更只失效发起者本人的信息流缓存
func (s *feedServiceImpl) HandleFollowChanged(ctx context.Context, evt eventbus.Event) error {
	payload, ok := evt.Payload.(dto.FollowEventDTO)
	if !ok {
		return fmt.Errorf("unexpected follow payload: %T", evt.Payload)
	}

	_, err := redis.Attempt(ctx, "viewer cache invalidate", func(c context.Context) (struct{}, error) {
		return struct{}{}, redis.InvalidateByTags(c, viewerTag(payload.FollowerID))
	}, redis.AttemptOptions[struct{}]{})
	return err
}

// favoriteTags 旁路缓存读取偏好标签,未命中时回源并预热
func (s *feedServiceImpl) favoriteTags(ctx context.Context, userID uint64) ([]string, error) {
	key := consts.UserAffinityKey + strconv.FormatUint(userID, 10)
	cached, err := redis.Attempt(ctx, "favorite tags read", func(c context.Context) (string, error) {
		return redis.GetValue(c, key)
	}, redis.AttemptOptions[string]{Fallback: util.PtrString("")})
	if err == nil && cached != "" {
		var tags []string
		if err := json.Unmarshal([]byte(cached), &tags); err == nil {
			return tags, nil
		}
	}

	tags, err := s.tagRepo.TopTags(ctx, userID, int64(config.Cfg.Feed.FavoriteTagLimit))
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(tags); err == nil {
		redis.AttemptWarm(ctx, "favorite tags warm", func(c context.Context) error {
			return redis.SetWithExpiration(c, key, payload, favoriteTagsTTL)
		})
	}
	return tags, nil
}

func (s *feedServiceImpl) readCachedPage(ctx context.Context, key string) *dto.FeedPageDTO {
	cached, err := redis.Attempt(ctx, "feed page read", func(c context.Context) (string, error) {
		return redis.GetValue(c, key)
	}, redis.AttemptOptions[string]{Fallback: util.PtrString("")})
	if err != nil || cached == "" {
		return nil
	}

	var page dto.FeedPageDTO
	if err := json.Unmarshal([]byte(cached), &page); err != nil {
		log.WarnContext(ctx, "broken feed cache entry", "key", key, "err", err)
		return nil
	}
	return &page
}

func (s *feedServiceImpl) warmPage(ctx context.Context, key string, page *dto.FeedPageDTO, tags ...string) {
	payload, err := json.Marshal(page)
	if err != nil {
		return
	}

	ttl := time.Duration(config.Cfg.Feed.CacheTTLSec) * time.Second
	redis.AttemptWarm(ctx, "feed page warm", func(c context.Context) error {
		return redis.SetWithTags(c, key, payload, ttl, tags...)
	})
}

func (s *feedServiceImpl) rankOptions() ranking.RankOptions {
	feed := config.Cfg.Feed
	return ranking.RankOptions{
		WindowDays: feed.RankedWindowDays,
		Weights: ranking.Weights{
			Recency:    feed.RecencyWeight,
			Popularity: feed.PopularityWeight,
			TagMatch:   feed.TagMatchWeight,
		},
	}
}

func (s *feedServiceImpl) trendingOptions() ranking.TrendingOptions {
	feed := config.Cfg.Feed
	return ranking.TrendingOptions{
		WindowDays: feed.TrendingWindowDays,
		MinLikes:   feed.TrendingMinLikes,
		Weights: ranking.TrendingWeights{
			Recency:    feed.TrendingRecency,
			Popularity: feed.TrendingPopularity,
			Comments:   feed.TrendingComments,
		},
	}
}

func viewerTag(userID uint64) string {
	return consts.ViewerCacheTag + strconv.FormatUint(userID, 10)
}

func normalizePage(query *dto.PageQuery) (limit, skip, page int) {
	limit = query.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	skip = query.Skip
	if skip < 0 {
		skip = 0
	}
	return limit, skip, skip/limit + 1
}

func toFeedPage(page ranking.Page) *dto.FeedPageDTO {
	items := make([]*dto.FeedItemDTO, 0, len(page.Items))
	for _, item := range page.Items {
		d := &dto.FeedItemDTO{IsPersonalized: item.IsPersonalized, Score: item.Score}
		d.ContentDTO = *toContentDTO(&item.Content)
		items = append(items, d)
	}
	return &dto.FeedPageDTO{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	}
}
