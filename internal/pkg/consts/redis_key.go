package consts

const (
	UserFeedKey       = "feed:user:"
	ForYouFeedKey     = "feed:foryou:"
	TrendingFeedKey   = "feed:trending"
	NewestFeedKey     = "feed:newest"
	NotifyBoxKey      = "notify:box:"
	CacheTagKey       = "cache:tag:"
	TokenBlacklistKey = "token:blacklist:"
	ContentLikeKey    = "content:like:"
	UserAffinityKey   = "user:affinity:"
)

const (
	TrendingJobLock = "lock:job:trending"
)

const (
	FeedCacheTag   = "feed"
	ViewerCacheTag = "feed:viewer:"
)
