// Command fittrack serves the FitTrack web client: workout logging, groups
// and profiles for the single signed-in user of this process.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/fittrack/db"
	"github.com/dmitrymomot/fittrack/handler"
	"github.com/dmitrymomot/fittrack/modules/account"
	"github.com/dmitrymomot/fittrack/modules/dashboard"
	"github.com/dmitrymomot/fittrack/modules/exercises"
	"github.com/dmitrymomot/fittrack/modules/groups"
	profilemod "github.com/dmitrymomot/fittrack/modules/profile"
	"github.com/dmitrymomot/fittrack/pkg/clientip"
	"github.com/dmitrymomot/fittrack/pkg/email"
	"github.com/dmitrymomot/fittrack/pkg/file"
	"github.com/dmitrymomot/fittrack/pkg/gotrue"
	"github.com/dmitrymomot/fittrack/pkg/httpserver"
	"github.com/dmitrymomot/fittrack/pkg/logger"
	"github.com/dmitrymomot/fittrack/pkg/pg"
	"github.com/dmitrymomot/fittrack/pkg/ratelimiter"
	"github.com/dmitrymomot/fittrack/pkg/redis"
	"github.com/dmitrymomot/fittrack/pkg/requestid"
	"github.com/dmitrymomot/fittrack/svc/auth"
	"github.com/dmitrymomot/fittrack/svc/exercise"
	"github.com/dmitrymomot/fittrack/svc/group"
	"github.com/dmitrymomot/fittrack/svc/profile"
	"github.com/dmitrymomot/fittrack/views"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("fittrack stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.App.Env, "fittrack"),
		logger.WithContextExtractors(requestid.LogExtractor, clientip.LogExtractor),
	)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()
	if cfg.PG.AutoMigrate {
		if err := pg.Migrate(ctx, pool, db.Migrations, db.MigrationsDir, cfg.PG, log); err != nil {
			return err
		}
	}

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	// Identity: the gotrue client emits auth events, the synchronizer turns
	// them into the session every guard and view reads.
	authClient, err := gotrue.NewClient(cfg.Auth,
		gotrue.WithStorage(gotrue.NewRedisStorage(rdb, cfg.Auth.StorageKey, 0)),
		gotrue.WithLogger(log),
	)
	if err != nil {
		return err
	}

	sessions := auth.NewSessionStore(cfg.App.SessionBufferSize)
	defer func() { _ = sessions.Close() }()

	stopSync := auth.NewSynchronizer(authClient, sessions, log).Start()
	defer stopSync()

	if err := authClient.Restore(ctx); err != nil {
		log.WarnContext(ctx, "stored session not restored", logger.Error(err))
	}
	go authClient.AutoRefresh(ctx)

	fileStorage, err := newFileStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	sender, err := newEmailSender(cfg, log)
	if err != nil {
		return err
	}

	exerciseStore := exercise.NewStore()
	groupStore := group.NewStore()
	go resetOnSignOut(ctx, sessions, log, exerciseStore.Reset, groupStore.Reset)

	profileSvc := profile.NewService(profile.NewPGRepository(pool), sessions,
		profile.WithLogger(log), profile.WithFileStorage(fileStorage))
	exerciseSvc := exercise.NewService(exercise.NewPGRepository(pool), exerciseStore,
		exercise.WithLogger(log))
	groupSvc := group.NewService(group.NewPGRepository(pool), groupStore,
		group.WithLogger(log),
		group.WithNotifier(groups.NewEmailNotifier(sender, groupStore, sessions, cfg.App.Name, cfg.App.BaseURL)),
	)

	signInLimiter, err := ratelimiter.NewBucket(ratelimiter.NewRedisStore(rdb), cfg.SignIn, "fittrack:signin:")
	if err != nil {
		return err
	}

	errorHandler := handler.NewErrorHandler(log, handler.ErrorHandlerConfig{
		ErrorPage:   views.ErrorPage,
		ErrorToast:  views.ErrorToast,
		ToastTarget: views.TargetToastContainer,
	})
	protected := auth.Protected(sessions, auth.WithGuardLogger(log))

	r := chi.NewRouter()
	r.Use(
		requestid.Middleware,
		clientip.Middleware,
		httpserver.AccessLog(log),
		middleware.Recoverer,
	)

	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(log,
		httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)},
		httpserver.Check{Name: "redis", Fn: redis.Healthcheck(rdb)},
	))
	if local, ok := fileStorage.(*file.LocalStorage); ok {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.Dir()))))
	}

	account.NewService(authClient, profileSvc, sessions, errorHandler, log,
		account.WithSignInLimiter(signInLimiter)).Routes(r)
	r.With(protected).Mount("/dashboard", dashboard.NewService(exerciseSvc, errorHandler, log).Handle())
	r.With(protected).Mount("/exercises", exercises.NewService(exerciseSvc, errorHandler, log).Handle())
	r.With(protected).Mount("/groups", groups.NewService(groupSvc, errorHandler, log).Handle())
	r.With(protected).Mount("/profile", profilemod.NewService(profileSvc, errorHandler, log).Handle())

	home := handler.Wrap(func(handler.Context, struct{}) handler.Response {
		return handler.RedirectReplace(auth.DefaultHomePath)
	})
	r.Get("/", home)
	r.NotFound(home)

	return httpserver.New(cfg.HTTP, httpserver.WithLogger(log)).Run(ctx, r)
}

func newFileStorage(ctx context.Context, cfg settings, log *slog.Logger) (file.Storage, error) {
	switch cfg.App.StorageDriver {
	case storageS3:
		s, err := file.NewS3Storage(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	case storageLocal:
		s, err := file.NewLocalStorage(cfg.App.UploadsDir, cfg.App.BaseURL+"/uploads")
		if err != nil {
			return nil, err
		}
		log.InfoContext(ctx, "avatars stored on local disk", slog.String("dir", s.Dir()))
		return s, nil
	default:
		return nil, errors.Join(file.ErrInvalidConfig, errors.New("unknown STORAGE_DRIVER "+cfg.App.StorageDriver))
	}
}

func newEmailSender(cfg settings, log *slog.Logger) (email.Sender, error) {
	if cfg.Email.PostmarkServerToken == "" {
		log.Info("postmark token not set, invitation emails written to disk", slog.String("dir", cfg.Email.DevDir))
		return email.NewDevSender(cfg.Email.DevDir, log), nil
	}
	s, err := email.NewPostmarkSender(cfg.Email)
	if err != nil {
		return nil, err
	}
	return s, nil
}
