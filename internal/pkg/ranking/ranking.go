package ranking

import (
	"Ripple/internal/model"
	"math"
	"sort"
	"time"
)

// Item 排序结果条目
type Item struct {
	Content        model.Content `json:"content"`
	IsPersonalized bool          `json:"isPersonalized"`
	Score          float64       `json:"score"`
}

// Page 偏移分页结果
type Page struct {
	Items      []Item `json:"items"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
}

// Weights 冷启动排序权重
type Weights struct {
	Recency    float64
	Popularity float64
	TagMatch   float64
}

// RankOptions 冷启动排序参数
type RankOptions struct {
	WindowDays int
	Weights    Weights
}

// TrendingWeights 热门排序权重
type TrendingWeights struct {
	Recency    float64
	Popularity float64
	Comments   float64
}

// TrendingOptions 热门排序参数
type TrendingOptions struct {
	WindowDays int
	MinLikes   int64
	Weights    TrendingWeights
}

func DefaultRankOptions() RankOptions {
	return RankOptions{
		WindowDays: 90,
		Weights:    Weights{Recency: 0.5, Popularity: 0.3, TagMatch: 0.2},
	}
}

func DefaultTrendingOptions() TrendingOptions {
	return TrendingOptions{
		WindowDays: 14,
		MinLikes:   0,
		Weights:    TrendingWeights{Recency: 0.4, Popularity: 0.5, Comments: 0.1},
	}
}

// Personalized 个性化排序:选出关注作者或命中偏好标签的内容,
// 按 (isPersonalized desc, createdAt desc) 排序。
// 无关注且无偏好时结果为空,调用方退回冷启动排序。
func Personalized(items []model.Content, followingIDs []uint64, favoriteTags []string, limit, skip int, now time.Time) Page {
	followed := make(map[uint64]struct{}, len(followingIDs))
	for _, id := range followingIDs {
		followed[id] = struct{}{}
	}
	favorites := tagSet(favoriteTags)

	selected := make([]Item, 0, len(items))
	for _, c := range items {
		_, isFollowed := followed[c.AuthorID]
		personalized := isFollowed || overlapCount(c.Tags, favorites) > 0
		if !personalized {
			continue
		}
		selected = append(selected, Item{Content: c, IsPersonalized: personalized})
	}

	sort.SliceStable(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		if a.IsPersonalized != b.IsPersonalized {
			return a.IsPersonalized
		}
		return newerFirst(a.Content, b.Content)
	})

	return paginate(selected, limit, skip)
}

// Ranked 冷启动排序:限定滚动窗口内的内容,
// rankScore = w_r·recency + w_p·ln(likes+1) + w_t·标签重合数
func Ranked(items []model.Content, favoriteTags []string, limit, skip int, now time.Time, opts RankOptions) Page {
	favorites := tagSet(favoriteTags)
	cutoff := now.AddDate(0, 0, -opts.WindowDays)

	selected := make([]Item, 0, len(items))
	for _, c := range items {
		if c.CreatedAt.Before(cutoff) {
			continue
		}
		score := opts.Weights.Recency*recencyScore(c.CreatedAt, now) +
			opts.Weights.Popularity*math.Log(float64(c.LikeCount)+1) +
			opts.Weights.TagMatch*float64(overlapCount(c.Tags, favorites))
		selected = append(selected, Item{Content: c, Score: score})
	}

	sortByScore(selected)
	return paginate(selected, limit, skip)
}

// Trending 热门排序:限定滚动窗口与最低点赞数,
// trendScore = w_r·recency + w_p·ln(likes+1) + w_c·ln(comments+1)
func Trending(items []model.Content, limit, skip int, now time.Time, opts TrendingOptions) Page {
	cutoff := now.AddDate(0, 0, -opts.WindowDays)

	selected := make([]Item, 0, len(items))
	for _, c := range items {
		if c.CreatedAt.Before(cutoff) || c.LikeCount < opts.MinLikes {
			continue
		}
		score := opts.Weights.Recency*recencyScore(c.CreatedAt, now) +
			opts.Weights.Popularity*math.Log(float64(c.LikeCount)+1) +
			opts.Weights.Comments*math.Log(float64(c.CommentCount)+1)
		selected = append(selected, Item{Content: c, Score: score})
	}

	sortByScore(selected)
	return paginate(selected, limit, skip)
}

// Newest 最新排序:按创建时间降序,不打分
func Newest(items []model.Content, limit, skip int) Page {
	selected := make([]Item, 0, len(items))
	for _, c := range items {
		selected = append(selected, Item{Content: c})
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return newerFirst(selected[i].Content, selected[j].Content)
	})
	return paginate(selected, limit, skip)
}

// recencyScore = 1 / (1 + 内容年龄天数)
func recencyScore(createdAt, now time.Time) float64 {
	ageDays := now.Sub(createdAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return 1 / (1 + ageDays)
}

func tagSet(tags []string) map[string]struct{} {
	s := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// overlapCount 标签重合数,大小写敏感的精确匹配
func overlapCount(tags []string, favorites map[string]struct{}) int {
	if len(favorites) == 0 {
		return 0
	}
	n := 0
	for _, t := range tags {
		if _, ok := favorites[t]; ok {
			n++
		}
	}
	return n
}

// sortByScore 分数降序,同分按创建时间降序再按ID,保证重算结果稳定
func sortByScore(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return newerFirst(a.Content, b.Content)
	})
}

func newerFirst(a, b model.Content) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.Hex() < b.ID.Hex()
}

// paginate 偏移分页,page = floor(skip/limit) + 1
func paginate(selected []Item, limit, skip int) Page {
	if limit <= 0 {
		limit = 20
	}
	if skip < 0 {
		skip = 0
	}

	total := len(selected)
	start := skip
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return Page{
		Items:      selected[start:end],
		Total:      int64(total),
		Page:       skip/limit + 1,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}
}
