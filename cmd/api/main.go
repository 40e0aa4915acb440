package main

import (
	"context"
	"log"
	"net/http"

	"github.com/glidepay/paycore/internal/api"
	"github.com/glidepay/paycore/internal/chatpay"
	"github.com/glidepay/paycore/internal/config"
	"github.com/glidepay/paycore/internal/engine"
	"github.com/glidepay/paycore/internal/notify"
	"github.com/glidepay/paycore/internal/request"
	"github.com/glidepay/paycore/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	st, err := postgres.New(ctx, cfg.DBSource)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer st.Close()

	if cfg.MigrateOnStart {
		if err := st.Migrate(ctx); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}

	var emitter notify.Emitter = notify.NewLogEmitter()
	if cfg.AMQPURL != "" {
		amqpEmitter, err := notify.NewAMQPEmitter(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("Unable to connect to broker: %v", err)
		}
		defer amqpEmitter.Close()
		emitter = amqpEmitter
	}

	// Initialize Layers
	eng := engine.New(st, st.Wallets(), st.Transactions(), st.Idempotency(), emitter)
	requestSvc := request.New(st, st.Requests(), st.Wallets(), eng, emitter)
	chatSvc := chatpay.New(st, st.Wallets(), st.Transactions(), st.Messages(), emitter)
	handler := api.NewHandler(eng, requestSvc, chatSvc, st.Transactions())

	r := api.NewRouter(handler)

	log.Printf("Server starting on :%s (%s)", cfg.Port, cfg.Env)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
