package wire

import (
	"Ripple/internal/api"
	"Ripple/internal/api/config"
	"Ripple/internal/api/handler"
	"Ripple/internal/job"
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/cron"
	"Ripple/internal/pkg/eventbus"
	"Ripple/internal/pkg/kafka"
	"Ripple/internal/pkg/mongo"
	"Ripple/internal/pkg/realtime"
	"Ripple/internal/repository"
	"Ripple/internal/service"

	"github.com/gin-gonic/gin"
	mongoDB "go.mongodb.org/mongo-driver/mongo"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router        *gin.Engine
	DB            *mongoDB.Database
	Bus           *eventbus.Bus
	Hub           *realtime.Hub
	Dispatcher    *realtime.Dispatcher
	KafkaManager  *kafka.ConsumerManager
	CronManager   *cron.Manager
	ProfileWorker *job.ProfileSyncWorker
}

func BuildApplication(db *mongoDB.Database, cfg *config.Config) (*ApplicationContainer, error) {
	bus := eventbus.NewBus()
	tx := mongo.NewTxManager(db, bus)

	userRepo := repository.NewUserRepo(db)
	contentRepo := repository.NewContentRepo(db)
	followRepo := repository.NewFollowRepo(db)
	tagRepo := repository.NewTagAffinityRepo(db)
	notifyRepo := repository.NewNotificationRepo(db)
	messageRepo := repository.NewMessageRepo(db)
	convRepo := repository.NewConversationRepo(db)

	feedSvc := service.NewFeedService(contentRepo, followRepo, tagRepo, bus)
	contentSvc := service.NewContentService(contentRepo, userRepo, followRepo, tx, bus)
	followSvc := service.NewFollowService(followRepo, userRepo, tx, bus)
	notifySvc := service.NewNotificationService(notifyRepo, userRepo, bus)
	imSvc := service.NewIMService(messageRepo, convRepo, userRepo, tx, bus)
	profileSvc := service.NewProfileService(userRepo, bus)

	hub := realtime.NewHub()
	dispatcher := realtime.NewDispatcher(hub)
	profileWorker := job.NewProfileSyncWorker(contentRepo)

	// 事件接线:进程内处理缓存失效与通知落库,经 Relay 中继到 Redis 频道跨实例广播。
	// cold_start 无进程内订阅者,只作为外部推荐预热的信号发出。
	bus.Subscribe(consts.EventNewPost, feedSvc.HandleNewPost)
	bus.Subscribe(consts.EventNewPost, realtime.RelayToChannel)
	bus.Subscribe(consts.EventLikeUpdate, realtime.RelayToChannel)
	bus.Subscribe(consts.EventFollowCreated, feedSvc.HandleFollowChanged)
	bus.Subscribe(consts.EventFollowCreated, notifySvc.HandleFollowCreated)
	bus.Subscribe(consts.EventFollowRemoved, feedSvc.HandleFollowChanged)
	bus.Subscribe(consts.EventMessageSent, realtime.RelayToChannel)
	bus.Subscribe(consts.EventMessageStatus, realtime.RelayToChannel)
	bus.Subscribe(consts.EventNotification, realtime.RelayToChannel)
	bus.Subscribe(consts.EventNotifyRead, realtime.RelayToChannel)
	bus.Subscribe(consts.EventProfileChanged, profileWorker.Enqueue)

	handlers := &api.HandlersGroup{
		FeedHandler:    handler.NewFeedHandler(feedSvc),
		ContentHandler: handler.NewContentHandler(contentSvc),
		FollowHandler:  handler.NewFollowHandler(followSvc),
		NotifyHandler:  handler.NewNotificationHandler(notifySvc),
		IMHandler:      handler.NewIMHandler(imSvc),
		ProfileHandler: handler.NewProfileHandler(profileSvc),
		WsHandler:      handler.NewWsHandler(hub),
	}

	router := api.SetupRouter(handlers)

	kafkaMgr, err := kafka.NewConsumerManager(cfg, contentRepo, tagRepo, userRepo, notifySvc, bus)
	if err != nil {
		return nil, err
	}

	cronMgr := cron.NewCronManager(job.NewTrendingJob(feedSvc))

	return &ApplicationContainer{
		Router:        router,
		DB:            db,
		Bus:           bus,
		Hub:           hub,
		Dispatcher:    dispatcher,
		KafkaManager:  kafkaMgr,
		CronManager:   cronMgr,
		ProfileWorker: profileWorker,
	}, nil
}
