package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/blockminer/app/services/miner/handlers"
	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
	"github.com/ardanlabs/blockminer/foundation/blockchain/state"
	"github.com/ardanlabs/blockminer/foundation/blockchain/storage"
	"github.com/ardanlabs/blockminer/foundation/events"
	"github.com/ardanlabs/blockminer/foundation/logger"
	"github.com/ardanlabs/blockminer/foundation/nameservice"
	"github.com/ardanlabs/conf/v3"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("MINER")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			Serve           bool          `conf:"default:false"`
			CORSOrigins     []string      `conf:"default:*"`
		}
		State struct {
			MinerName   string        `conf:"default:miner1"`
			KeyFolder   string        `conf:"default:zblock/accounts/"`
			GenesisPath string        `conf:"default:zblock/genesis.json"`
			MempoolDir  string        `conf:"default:zblock/mempool/"`
			OutputPath  string        `conf:"default:zblock/out.txt"`
			Workers     int           `conf:"default:4"`
			StartNonce  uint64        `conf:"default:0"`
			MaxAttempts uint64        `conf:"default:0"`
			Timeout     time.Duration `conf:"default:0s"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "MINER"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for beneficiary
	// scripts. The names come from the file names in the key folder.
	ns, err := nameservice.New(cfg.State.KeyFolder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	// Logging the accounts for documentation in the logs.
	for script, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "script", script)
	}

	// =========================================================================
	// Blockchain Support

	// Need to load the private key file for the configured miner so the
	// coinbase can pay its account.
	path := fmt.Sprintf("%s%s.ecdsa", cfg.State.KeyFolder, cfg.State.MinerName)
	privateKey, err := crypto.LoadECDSA(path)
	if err != nil {
		return fmt.Errorf("unable to load private key for miner: %w", err)
	}

	log.Infow("startup", "status", "miner key loaded", "account", crypto.PubkeyToAddress(privateKey.PublicKey))

	// The genesis file is optional, the reference parameters are used when
	// it does not exist.
	gen := genesis.Default()
	switch _, err := os.Stat(cfg.State.GenesisPath); {
	case err == nil:
		if gen, err = genesis.Load(cfg.State.GenesisPath); err != nil {
			return fmt.Errorf("unable to load genesis: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		log.Infow("startup", "status", "genesis file not found, using defaults", "path", cfg.State.GenesisPath)
	default:
		return fmt.Errorf("unable to stat genesis: %w", err)
	}

	strg, err := storage.NewDisk(cfg.State.MempoolDir, cfg.State.OutputPath)
	if err != nil {
		return fmt.Errorf("unable to open storage: %w", err)
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. Every message of this run carries the same trace id
	// and is sent to any websocket client connected through the events package.
	evts := events.New()
	traceID := uuid.NewString()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", traceID)
		evts.Send(s)
	}

	// The state value represents the miner and manages the mempool and the
	// mining of a block from it.
	st, err := state.New(state.Config{
		Genesis:     gen,
		Storage:     strg,
		Beneficiary: signature.BeneficiaryScript(privateKey.PublicKey),
		Workers:     cfg.State.Workers,
		SearchOptions: database.SearchOptions{
			StartNonce:  cfg.State.StartNonce,
			MaxAttempts: cfg.State.MaxAttempts,
		},
		EvHandler: ev,
	})
	if err != nil {
		return err
	}

	for _, rec := range st.RetrieveMalformed() {
		log.Infow("startup", "status", "malformed record", "source", rec.Source, "ERROR", rec.Malformed)
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, st)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		NS:       ns,
		Evts:     evts,
		Origins:  cfg.Web.CORSOrigins,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Mining

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.State.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.State.Timeout)
		defer cancel()
	}

	// Make a channel to receive the result of the mining operation. Use a
	// buffered channel so the goroutine can exit if we don't collect it.
	mined := make(chan error, 1)

	go func() {
		bd, err := st.MineAndWrite(ctx)
		if err == nil {
			log.Infow("mining", "status", "block mined", "hash", bd.Hash, "nonce", bd.Header.Nonce, "txs", len(bd.TxIDs), "fees", bd.TotalFees, "output", cfg.State.OutputPath)
		}
		mined <- err
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for the block, a server error or a shutdown.
	// When the service is asked to serve, it keeps the public API up after
	// the block is mined until it is told to shut down.
	for {
		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case err := <-mined:
			if err != nil {
				return fmt.Errorf("mining: %w", err)
			}
			if !cfg.Web.Serve {
				return stopPublic(log, &public, evts, cfg.Web.ShutdownTimeout)
			}
			mined = nil

		case sig := <-shutdown:
			log.Infow("shutdown", "status", "shutdown started", "signal", sig)
			defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

			// Stop the search and wait for the mining G to report back.
			cancel()
			if mined != nil {
				if err := <-mined; err != nil {
					log.Infow("shutdown", "status", "mining stopped", "ERROR", err)
				}
			}

			return stopPublic(log, &public, evts, cfg.Web.ShutdownTimeout)
		}
	}
}

// stopPublic releases the web sockets and gives outstanding requests a
// deadline for completion.
func stopPublic(log *zap.SugaredLogger, public *http.Server, evts *events.Events, timeout time.Duration) error {

	// Release any web sockets that are currently active.
	log.Infow("shutdown", "status", "shutdown web socket channels")
	evts.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Asking listener to shut down and shed load.
	log.Infow("shutdown", "status", "shutdown public API started")
	if err := public.Shutdown(ctx); err != nil {
		public.Close()
		return fmt.Errorf("could not stop public service gracefully: %w", err)
	}

	return nil
}
