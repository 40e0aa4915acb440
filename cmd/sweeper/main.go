// Command sweeper expires due money requests. It is meant to be invoked by
// an external scheduler (cron or similar); the expire transition itself is
// idempotent, so overlapping runs are safe.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/glidepay/paycore/internal/config"
	"github.com/glidepay/paycore/internal/engine"
	"github.com/glidepay/paycore/internal/notify"
	"github.com/glidepay/paycore/internal/request"
	"github.com/glidepay/paycore/internal/store/postgres"
)

var limit int

func init() {
	flag.IntVar(&limit, "limit", 500, "Maximum requests to expire per run")
}

func main() {
	flag.Parse()

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

	var emitter notify.Emitter = notify.NewLogEmitter()
	if cfg.AMQPURL != "" {
		amqpEmitter, err := notify.NewAMQPEmitter(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("Unable to connect to broker: %v", err)
		}
		defer amqpEmitter.Close()
		emitter = amqpEmitter
	}

	eng := engine.New(st, st.Wallets(), st.Transactions(), st.Idempotency(), emitter)
	requests := request.New(st, st.Requests(), st.Wallets(), eng, emitter)

	expired, err := requests.SweepExpired(ctx, time.Now(), limit)
	if err != nil {
		log.Fatalf("Sweep failed after expiring %d requests: %v", expired, err)
	}
	log.Printf("Expired %d money requests.", expired)
}
