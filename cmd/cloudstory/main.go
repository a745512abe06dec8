package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-redis/redis"
	"github.com/golang-migrate/migrate/v4"
	migratep "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jessevdk/go-flags"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cloudstory/cloudstory/internal/auth"
	"github.com/cloudstory/cloudstory/internal/filestorage"
	"github.com/cloudstory/cloudstory/internal/mail"
	"github.com/cloudstory/cloudstory/internal/server"
	serviceimpl "github.com/cloudstory/cloudstory/internal/service/impl"
	"github.com/cloudstory/cloudstory/internal/storage/postgres"
	"github.com/cloudstory/cloudstory/internal/verification"
)

// nolint:lll,gochecknoglobals
var opts = struct {
	Host string `long:"http.host" env:"HTTP_HOST" default:"0.0.0.0" description:"IP to listen on"`
	Port int    `long:"http.port" env:"HTTP_PORT" default:"8080" description:"port to listen on for insecure connections, defaults to a random value"`

	RequestTimeout time.Duration `long:"http.request_timeout" env:"HTTP_REQUEST_TIMEOUT" default:"45s" description:"request processing timeout"`

	Postgres                   string `long:"postgres" env:"POSTGRES" default:"host=localhost port=5432 user=postgres password=root sslmode=disable" description:"postgres dsn"`
	PostgresMaxOpenConnections int    `long:"postgres.max_open_connections" env:"POSTGRES_MAX_OPEN_CONNECTIONS" default:"0" description:"postgres maximal open connections count, 0 means unlimited"`
	PostgresMaxIdleConnections int    `long:"postgres.max_idle_connections" env:"POSTGRES_MAX_IDLE_CONNECTIONS" default:"5" description:"postgres maximal idle connections count"`
	PostgresMigrations         string `long:"postgres.migrations" env:"POSTGRES_MIGRATIONS" default:"migrations/postgres" description:"postgres migrations directory"`

	Redis string `long:"redis" env:"REDIS" default:"localhost:6379" description:"redis address"`

	JWTSecret string        `long:"jwt.secret" env:"JWT_SECRET" required:"true" description:"secret for token signing"`
	JWTTTL    time.Duration `long:"jwt.ttl" env:"JWT_TTL" default:"24h" description:"validity window of issued tokens"`

	VerificationTTL time.Duration `long:"verification.ttl" env:"VERIFICATION_TTL" default:"10m" description:"validity window of email verification codes"`

	SMTPHost     string `long:"smtp.host" env:"SMTP_HOST" description:"smtp relay host, verification codes are only logged when empty"`
	SMTPPort     int    `long:"smtp.port" env:"SMTP_PORT" default:"587" description:"smtp relay port"`
	SMTPUsername string `long:"smtp.username" env:"SMTP_USERNAME" description:"smtp username"`
	SMTPPassword string `long:"smtp.password" env:"SMTP_PASSWORD" description:"smtp password"`
	SMTPFrom     string `long:"smtp.from" env:"SMTP_FROM" description:"sender address of verification mails"`

	UploadsDir string `long:"uploads.dir" env:"UPLOADS_DIR" default:"uploads" description:"directory for uploaded files"`

	LogLevel string `long:"log.level" env:"LOG_LEVEL" default:"info" description:"Log level" choice:"debug" choice:"info" choice:"warning" choice:"error"`
}{}

var errTerminated = errors.New("terminated")

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "CloudStory"
	parser.LongDescription = "CloudStory social blogging backend"

	_, err := parser.Parse()

	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		logrus.WithError(err).Fatal("error occurred while parsing flags")
	}

	lvl, _ := logrus.ParseLevel(opts.LogLevel) // err will always be nil
	logrus.SetLevel(lvl)

	db := mustGetDB()
	rdb := mustGetRedis()

	files, err := filestorage.New(opts.UploadsDir)
	if err != nil {
		logrus.WithError(err).Fatal("failed to init file storage")
	}

	codes := verification.New(rdb, opts.VerificationTTL)

	var mailer mail.Sender
	if opts.SMTPHost != "" {
		mailer = mail.NewSMTP(mail.SMTPConfig{
			Host:     opts.SMTPHost,
			Port:     opts.SMTPPort,
			Username: opts.SMTPUsername,
			Password: opts.SMTPPassword,
			From:     opts.SMTPFrom,
		})
	} else {
		logrus.Warn("empty smtp host, verification codes will only be logged")
		mailer = mail.NewLog()
	}

	svc := serviceimpl.New(postgres.New(db), files, codes, mailer)
	tokens := auth.New(opts.JWTSecret, opts.JWTTTL)

	r := chi.NewMux()
	server.SetupRouter(svc, tokens, files, r, opts.RequestTimeout)

	srv := http.Server{
		Addr:    fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler: r,
	}

	ctx, cancel := context.WithCancel(context.Background())

	gr, _ := errgroup.WithContext(ctx)
	gr.Go(srv.ListenAndServe)
	gr.Go(func() error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

		s := <-sigs

		logrus.Infof("terminating by %s signal", s)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("failed to shutdown server gracefully")
		}

		cancel()

		return errTerminated
	})

	logrus.Info("service started")

	if err := gr.Wait(); err != nil && !errors.Is(err, errTerminated) && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Fatal("service unexpectedly closed")
	}
}

func mustGetDB() *sql.DB {
	db, err := sql.Open("postgres", opts.Postgres)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create postgres connection")
	}
	db.SetMaxOpenConns(opts.PostgresMaxOpenConnections)
	db.SetMaxIdleConns(opts.PostgresMaxIdleConnections)

	if err := db.PingContext(context.Background()); err != nil {
		logrus.WithError(err).Fatal("failed to ping postgres")
	}

	driver, err := migratep.WithInstance(db, &migratep.Config{})
	if err != nil {
		logrus.WithError(err).Fatal("failed to create database migrate driver")
	}

	migrator, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", opts.PostgresMigrations), "postgres", driver)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create migrator")
	}

	switch v, d, err := migrator.Version(); err {
	case nil:
		logrus.Infof("database version %d with dirty state %t", v, d)
	case migrate.ErrNilVersion:
		logrus.Info("database version: nil")
	default:
		logrus.WithError(err).Fatal("failed to get version")
	}

	switch err := migrator.Up(); err {
	case nil:
		logrus.Info("database was migrated")
	case migrate.ErrNoChange:
		logrus.Info("database is up-to-date")
	default:
		logrus.WithError(err).Fatal("failed to migrate db")
	}

	return db
}

func mustGetRedis() *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: opts.Redis,
	})

	if err := client.Ping().Err(); err != nil {
		logrus.WithError(err).Fatal("failed to ping redis")
	}

	return client
}
