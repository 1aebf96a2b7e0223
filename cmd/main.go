package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/mirrorledger/textoracle/internal/classify"
	"github.com/mirrorledger/textoracle/internal/client"
	"github.com/mirrorledger/textoracle/internal/config"
	"github.com/mirrorledger/textoracle/internal/contract"
	"github.com/mirrorledger/textoracle/internal/httpapi"
	"github.com/mirrorledger/textoracle/internal/ledger"
	"github.com/mirrorledger/textoracle/internal/oracle"
	"github.com/mirrorledger/textoracle/internal/persistence"
	"github.com/mirrorledger/textoracle/internal/wallet"
	"github.com/mirrorledger/textoracle/pkg/log"
)

const genesisBalance = 10_000_000_000

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	log.InitLogger(log.ParseLevel(cfg.System.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("Demo failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// Demo accounts. The creator doubles as the oracle operator.
	creator, err := wallet.NewRandom()
	if err != nil {
		return err
	}
	user, err := wallet.NewRandom()
	if err != nil {
		return err
	}

	var opts []ledger.Option
	if cfg.System.LedgerDBPath != "" {
		store, err := persistence.NewLedgerStore(cfg.System.LedgerDBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, ledger.WithStore(store))
	}

	led, err := ledger.New(map[ledger.Address]uint64{
		creator.Address(): genesisBalance,
		user.Address():    genesisBalance,
	}, opts...)
	if err != nil {
		return err
	}

	// Deploy the on-ledger oracle. For demo purposes a fresh one every run.
	appID, err := led.CreateApp(creator.Address(), contract.NewOracle())
	if err != nil {
		return err
	}
	log.Info("Deployed oracle contract as app %d (%s)", appID, ledger.AppAddress(appID))

	// The escrow account needs its minimum balance to participate in
	// transactions.
	fund := ledger.Transaction{
		Sender: creator.Address(),
		Payment: &ledger.Payment{
			Sender:   creator.Address(),
			Receiver: ledger.AppAddress(appID),
			Amount:   ledger.DefaultAppMinBalance,
		},
		Fee:  ledger.MinFee,
		Note: "fund contract minimum balance",
	}
	if err := led.SubmitPayment(ctx, ledger.Sign(fund, creator)); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	worker := oracle.NewWorker(led, appID, creator, classify.NewKeywordClassifier(),
		oracle.WithIdleDelay(cfg.Worker.IdleDelay),
		oracle.WithMetrics(oracle.NewMetrics(registry)),
	)
	reclaimer := oracle.NewReclaimScheduler(led, appID, creator, cfg.Worker.ReclaimCron)
	api := httpapi.NewServer(led, appID, httpapi.WithMetricsRegistry(registry))

	if err := reclaimer.Start(); err != nil {
		return err
	}
	defer reclaimer.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(ctx)
	})
	g.Go(func() error {
		log.Info("Operator API listening on %s", cfg.System.HTTPAddr)
		if err := api.ListenAndServe(cfg.System.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return api.Shutdown(context.Background())
	})
	g.Go(func() error {
		return demoRoundTrip(ctx, cfg, led, appID, user)
	})

	return g.Wait()
}

// demoRoundTrip drives one classification through the full protocol, the
// same flow an external client would use.
func demoRoundTrip(ctx context.Context, cfg *config.Config, led *ledger.Ledger, appID uint64, user *wallet.Account) error {
	proxy := client.NewAsyncProxy(led, appID,
		client.WithPollInterval(cfg.Client.PollInterval),
		client.WithPollMaxInterval(cfg.Client.PollMaxInterval),
		client.WithBudget(cfg.Client.Budget),
	)

	result, err := proxy.ClassifyText(ctx, user, "I love you.", "pay message")
	if err != nil {
		return err
	}
	log.Info("Oracle returned %q", result)

	balance, err := led.AccountBalance(ctx, user.Address())
	if err != nil {
		return err
	}
	log.Info("User balance after round trip: %d", balance)
	return nil
}
