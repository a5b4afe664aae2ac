package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"

	"github.com/relabs-tech/restkit/core"
	"github.com/relabs-tech/restkit/core/access"
	"github.com/relabs-tech/restkit/core/backend"
	"github.com/relabs-tech/restkit/core/csql"
	"github.com/relabs-tech/restkit/core/logger"
	"github.com/relabs-tech/restkit/core/notify"
	"github.com/relabs-tech/restkit/services/accounts/app"
)

// Service holds the configuration for this service
//
// use POSTGRES="host=localhost port=5432 user=postgres password=docker dbname=postgres sslmode=disable"
// or SQLITE=accounts.db
type Service struct {
	Postgres       string        `env:"POSTGRES" description:"the connection string for the Postgres DB"`
	PostgresSchema string        `env:"POSTGRES_SCHEMA,default=accounts" description:"the Postgres schema of the tables"`
	SQLite         string        `env:"SQLITE,default=accounts.db" description:"the SQLite database file, used without POSTGRES"`
	JwtSecret      string        `env:"JWT_SECRET,required" description:"the HMAC secret of the tokens"`
	JwtTTL         time.Duration `env:"JWT_TTL,default=1h" description:"the lifetime of the tokens"`
	KafkaBrokers   string        `env:"KAFKA_BROKERS" description:"comma separated Kafka brokers for notifications, logged if empty"`
	KafkaTopic     string        `env:"KAFKA_TOPIC,default=resource_notification" description:"the Kafka topic of notifications"`
	LogLevel       string        `env:"LOG_LEVEL,default=info" description:"the log level"`
	Port           int           `env:"PORT,default=3000" description:"the port to listen on"`
	Seed           bool          `env:"SEED,default=false" description:"seed the states and the default user"`
}

func main() {
	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		panic(err)
	}
	logger.InitLogger(logger.ParseLevel(service.LogLevel))
	rlog := logger.Default()

	var db *csql.DB
	if service.Postgres != "" {
		db = csql.OpenWithSchema(service.Postgres, service.PostgresSchema)
	} else {
		var err error
		if db, err = csql.OpenSQLite(service.SQLite); err != nil {
			rlog.WithError(err).Fatalln("cannot open database")
		}
	}
	defer db.Close()

	var notifier core.Notifier = notify.LogNotifier{}
	if service.KafkaBrokers != "" {
		kafkaNotifier := notify.NewKafkaNotifier(strings.Split(service.KafkaBrokers, ","), service.KafkaTopic)
		defer kafkaNotifier.Close()
		notifier = notify.Multi{notifier, kafkaNotifier}
	}

	router := mux.NewRouter()
	logger.AddRequestID(router)
	accounts := app.MustNew(&app.Builder{
		DB:       db.DB,
		Router:   router,
		Issuer:   &access.TokenIssuer{Secret: []byte(service.JwtSecret), Issuer: "accounts", TTL: service.JwtTTL},
		Notifier: notifier,
	})
	if service.Seed {
		if err := accounts.Seed(context.Background()); err != nil {
			rlog.WithError(err).Fatalln("cannot seed")
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", service.Port),
		Handler:           backend.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		rlog.Infoln("listen on port", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			rlog.WithError(err).Fatalln("cannot listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	rlog.Infoln("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		rlog.WithError(err).Errorln("Error 5002: shutdown")
	}
}
