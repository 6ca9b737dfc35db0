package boot

import (
	"campusmarket/src/common"
	"campusmarket/src/config"
	"campusmarket/src/controllers"
	"campusmarket/src/db"
	"campusmarket/src/lib"
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pusher/pusher-http-go/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	lockPrefix      = "campusmarket"
	kafkaClientID   = "campusmarket-api"
	expiryJobName   = "expire-pending-bookings"
	shutdownTimeout = 5 * time.Second
)

// App holds the wired services of one API process.
type App struct {
	Config *config.Config
	DB     *gorm.DB

	Redis     *redis.Client
	Publisher *lib.KafkaPublisher
	Realtime  *pusher.Client
	Scheduler gocron.Scheduler

	Items         *common.ItemStore
	Bookings      *common.BookingEngine
	Notifications *common.Dispatcher
	Comments      *common.CommentThread
}

func InitDb(cfg *config.Config) (*gorm.DB, error) {
	gormDB, err := db.Open(cfg.DatabaseDriver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Printf("Error migrating database: %s\n", err.Error())
		return nil, err
	}
	return gormDB, nil
}

// NewApp wires the core services. Redis, Kafka and Pusher are optional; when
// unset the process falls back to in-process locks, no event stream and no
// realtime push.
func NewApp(cfg *config.Config, gormDB *gorm.DB) (*App, error) {
	app := &App{Config: cfg, DB: gormDB}

	var locker common.ItemLocker
	if cfg.RedisURL != "" {
		client, err := lib.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		app.Redis = client
		locker = lib.NewRedisLocker(client, lockPrefix)
		log.Println("[boot] Using redis item locks")
	}

	var dispatcherOpts []common.DispatcherOption
	if cfg.PusherEnabled() {
		app.Realtime = lib.NewPusherClient(cfg.PusherAppID, cfg.PusherKey, cfg.PusherSecret, cfg.PusherCluster)
		dispatcherOpts = append(dispatcherOpts, common.WithRealtime(app.Realtime))
	}

	var engineOpts []common.EngineOption
	if cfg.KafkaBroker != "" {
		publisher, err := lib.NewKafkaPublisher(cfg.KafkaBroker, kafkaClientID)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Publisher = publisher
		engineOpts = append(engineOpts, common.WithPublisher(publisher, cfg.TransitionsTopic))
	}

	app.Items = common.NewItemStore(gormDB, locker)
	app.Notifications = common.NewDispatcher(gormDB, dispatcherOpts...)
	app.Bookings = common.NewBookingEngine(gormDB, app.Items, app.Notifications, engineOpts...)
	app.Comments = common.NewCommentThread(gormDB, app.Notifications)
	return app, nil
}

func (a *App) Controller() *controllers.Controller {
	ctrl := &controllers.Controller{
		Items:         a.Items,
		Bookings:      a.Bookings,
		Notifications: a.Notifications,
		Comments:      a.Comments,
	}
	if a.Realtime != nil {
		ctrl.Realtime = a.Realtime
	}
	return ctrl
}

// InitScheduler starts the pending booking sweep unless it is disabled.
func (a *App) InitScheduler() error {
	ttl := a.Config.PendingBookingTTL
	interval := a.Config.BookingSweepInterval
	if ttl <= 0 || interval <= 0 {
		log.Println("[boot] Pending booking sweep disabled")
		return nil
	}
	sched, err := lib.NewScheduler()
	if err != nil {
		return err
	}
	_, err = lib.CreateDurationJob(sched, expiryJobName, interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		if _, err := a.Bookings.ExpireStalePending(ctx, ttl); err != nil {
			log.Printf("[boot] Sweep failed: %s\n", err.Error())
		}
	})
	if err != nil {
		return err
	}
	a.Scheduler = sched
	sched.Start()
	log.Printf("Jobs in queue: %d\n", len(sched.Jobs()))
	return nil
}

func (a *App) Close() {
	if a.Scheduler != nil {
		if err := a.Scheduler.Shutdown(); err != nil {
			log.Printf("An error has occurred while stopping Scheduler: %s\n", err.Error())
		}
	}
	if a.Notifications != nil {
		a.Notifications.Wait()
	}
	if a.Publisher != nil {
		a.Publisher.Close(shutdownTimeout)
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Printf("Error closing redis client: %s\n", err.Error())
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
