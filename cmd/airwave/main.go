// Command airwave is the Supervisor (C14): it boots every AirWave
// component in dependency order, wires the data and control flow described
// in SPEC_FULL.md §4, and drains cleanly on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwave/airwave/internal/adminapi"
	"github.com/airwave/airwave/internal/audio"
	"github.com/airwave/airwave/internal/bus"
	"github.com/airwave/airwave/internal/config"
	"github.com/airwave/airwave/internal/eam"
	"github.com/airwave/airwave/internal/mediastore"
	"github.com/airwave/airwave/internal/model"
	"github.com/airwave/airwave/internal/photos"
	"github.com/airwave/airwave/internal/processor"
	"github.com/airwave/airwave/internal/schema"
	"github.com/airwave/airwave/internal/source"
	"github.com/airwave/airwave/internal/store"
	"github.com/airwave/airwave/internal/tracker"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	var overrides config.Overrides
	var showVersion bool
	flag.StringVar(&overrides.EnvFile, "env-file", "", "Path to .env file (default: .env)")
	flag.StringVar(&overrides.HTTPAddr, "listen", "", "Admin HTTP listen address (overrides HTTP_ADDR)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	flag.StringVar(&overrides.DatabaseURL, "database-url", "", "PostgreSQL connection URL (overrides DATABASE_URL)")
	flag.StringVar(&overrides.MediaDir, "media-dir", "", "Audio/photo media directory (overrides MEDIA_DIR)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("%s (commit=%s, built=%s)\n", version, commit, buildTime)
		os.Exit(0)
	}

	startTime := time.Now()

	cfg, err := config.LoadEnv(overrides)
	if err != nil {
		zerolog.New(os.Stderr).With().Timestamp().Logger().Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Str("commit", commit).Str("built", buildTime).Msg("airwave starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Boot order per §4.12: Store -> Schema Validator -> Config Manager
	// -> Trackers -> Processor -> Sources.

	db, err := store.Connect(ctx, cfg.DatabaseURL, log.With().Str("component", "store").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to store")
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("schema initialization failed")
	}
	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("schema migration failed")
	}

	validator, err := schema.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load schema set")
	}

	cfgMgr, err := config.NewManager(ctx, db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config manager state")
	}

	b := bus.New(log, 0)

	var mqttBridge *bus.MQTTBridge
	if cfg.MQTTBrokerURL != "" {
		mqttBridge, err = bus.NewMQTTBridge(b, bus.MQTTBridgeOptions{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  cfg.MQTTClientID,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			Prefix:    cfg.MQTTTopic,
			Log:       log,
		})
		if err != nil {
			log.Error().Err(err).Msg("mqtt bridge connect failed, continuing without it")
		} else {
			defer mqttBridge.Close()
		}
	}

	hexTable := tracker.DefaultHexTable()
	tailTable := tracker.DefaultTailTable()

	var sysSettings config.SystemSettings
	sysSettings.MessageRetentionDays = cfg.MessageRetentionDays
	sysSettings.AircraftStaleHours = cfg.AircraftStaleHours
	sysSettings.PhotoRetentionDays = cfg.PhotoRetentionDays
	_ = cfgMgr.Decode(config.CategorySystem, &sysSettings)

	aircraftTracker := tracker.New(tracker.DefaultTrackRingSize,
		time.Duration(sysSettings.AircraftStaleHours)*time.Hour, b, log)
	go aircraftTracker.RunEvictionLoop(ctx, 30*time.Second)
	defer aircraftTracker.Stop()

	if regRows, err := db.LoadHexRegistrations(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to load hex_to_registration table")
	} else {
		regs := make([]tracker.Registration, len(regRows))
		for i, r := range regRows {
			regs[i] = tracker.Registration{Hex: r.Hex, Registration: r.Registration, AircraftType: r.AircraftType, Airline: r.Airline}
		}
		aircraftTracker.LoadRegistry(regs)
		log.Info().Int("rows", len(regs)).Msg("hex registration table loaded")
	}

	hfgcsTracker := tracker.NewHFGCS(hexTable, tailTable, tracker.DefaultHFGCSStaleTimeout, b, log)
	go hfgcsTracker.RunEvictionLoop(ctx, 30*time.Second)

	proc := processor.New(validator, db, aircraftTracker, hfgcsTracker, b, log)

	// --- Media storage, photos, VOX recording + transcription + EAM.

	mediaCfg := mediastore.Config{
		Bucket:         cfg.S3Bucket,
		Region:         cfg.S3Region,
		Endpoint:       cfg.S3Endpoint,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		LocalCache:     true,
		CacheRetention: time.Duration(sysSettings.PhotoRetentionDays) * 24 * time.Hour,
		CacheMaxGB:     cfg.S3CacheMaxGB,
	}
	media, mediaServices, err := mediastore.New(mediaCfg, cfg.MediaDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize media storage")
	}
	for _, svc := range mediaServices {
		svc.Start()
		defer svc.Stop()
	}

	var photosSettings config.PhotosSettings
	photosSettings.APIBaseURL = cfg.PhotosAPIBaseURL
	_ = cfgMgr.Decode(config.CategoryPhotos, &photosSettings)
	photoFetcher := photos.New(photosSettings.APIBaseURL, time.Duration(photosSettings.MinRefetchIntervalH)*time.Hour, media, db, log)

	var whisperSettings config.WhisperSettings
	whisperSettings.URL = cfg.WhisperURL
	_ = cfgMgr.Decode(config.CategoryWhisper, &whisperSettings)

	var audioSettings config.AudioSettings
	_ = cfgMgr.Decode(config.CategoryAudio, &audioSettings)
	thresholds := audio.Thresholds{}
	if audioSettings.SilenceTimeoutMS > 0 {
		thresholds.SilenceHang = time.Duration(audioSettings.SilenceTimeoutMS) * time.Millisecond
	}
	if audioSettings.MaxSegmentMS > 0 {
		thresholds.MaxSegment = time.Duration(audioSettings.MaxSegmentMS) * time.Millisecond
	}

	var workerPool *audio.WorkerPool
	var recorder *audio.Recorder
	aggregator := eam.NewAggregator(db, b, log)

	if whisperSettings.URL != "" {
		whisperClient := audio.NewWhisperClient(whisperSettings.URL, cfg.WhisperTimeout)
		workerPool = audio.NewWorkerPool(audio.WorkerPoolOptions{
			Whisper: whisperClient,
			Store:   db,
			Bus:     b,
			Workers: 2,
			Timeout: cfg.WhisperTimeout,
			Log:     log,
		})
		workerPool.Start()
		defer workerPool.Stop()

		recorder = audio.NewRecorder(cfg.MediaDir, thresholds, db, workerPool, b, log)

		// Correlate a fresh transcription across adjacent segments.
		transcriptionCh, cancelTranscription := b.Subscribe(bus.TopicTranscriptionComplete)
		defer cancelTranscription()
		go func() {
			for evt := range transcriptionCh {
				res, ok := evt.Payload.(audio.TranscriptionResult)
				if !ok || !aggregator.ShouldTrigger(res.Text) {
					continue
				}
				if _, err := aggregator.Detect(ctx, res.FeedID, res.SegmentID, res.StartTime); err != nil {
					log.Warn().Err(err).Str("segment_id", res.SegmentID).Msg("eam detection failed")
				}
			}
		}()
	} else {
		log.Info().Msg("whisper not configured — VOX recording/transcription disabled")
	}

	messageCh, cancelMessages := b.Subscribe(bus.TopicMessage)
	defer cancelMessages()
	go func() {
		for evt := range messageCh {
			msg, ok := evt.Payload.(*model.Message)
			if !ok || msg.Identity == nil || msg.Identity.Tail == "" {
				continue
			}
			if err := photoFetcher.FetchIfNeeded(ctx, msg.Identity.Tail); err != nil {
				log.Debug().Err(err).Str("tail", msg.Identity.Tail).Msg("photo fetch skipped")
			}
		}
	}()

	// --- Source Manager (C13): register every enabled upstream feed.

	sourceMgr := source.NewManager(log)
	emit := func(msg *model.Message) { proc.Process(ctx, msg) }

	var tar1090Settings config.TAR1090Settings
	_ = cfgMgr.Decode(config.CategoryTAR1090, &tar1090Settings)
	if tar1090Settings.Enabled {
		interval := pollIntervalOr(tar1090Settings.PollInterval, 5*time.Second)
		if err := sourceMgr.Register(ctx, func() source.Source {
			return source.NewTAR1090Source(tar1090Settings.URL, interval, emit, log)
		}); err != nil {
			log.Error().Err(err).Msg("tar1090 source failed to start")
		}
	}

	var openSkySettings config.OpenSkySettings
	_ = cfgMgr.Decode(config.CategoryOpenSky, &openSkySettings)
	if openSkySettings.Enabled {
		interval := pollIntervalOr(openSkySettings.PollInterval, 10*time.Second)
		if err := sourceMgr.Register(ctx, func() source.Source {
			return source.NewOpenSkySource(openSkySettings.URL, interval, emit, log)
		}); err != nil {
			log.Error().Err(err).Msg("opensky source failed to start")
		}
	}

	var adsbxSettings config.ADSBExchangeSettings
	_ = cfgMgr.Decode(config.CategoryADSBExchange, &adsbxSettings)
	if adsbxSettings.Enabled {
		interval := pollIntervalOr(adsbxSettings.PollInterval, 10*time.Second)
		if err := sourceMgr.Register(ctx, func() source.Source {
			return source.NewADSBExchangeSource(adsbxSettings.URL, adsbxSettings.APIKey, interval, emit, log)
		}); err != nil {
			log.Error().Err(err).Msg("adsbexchange source failed to start")
		}
	}

	var airframesSettings config.AirframesSettings
	_ = cfgMgr.Decode(config.CategoryAirframes, &airframesSettings)
	if airframesSettings.Enabled {
		if err := sourceMgr.Register(ctx, func() source.Source {
			return source.NewAirframesSource(airframesSettings.WSURL, emit, log)
		}); err != nil {
			log.Error().Err(err).Msg("airframes source failed to start")
		}
	}

	var eamWatchSettings config.EAMWatchSettings
	_ = cfgMgr.Decode(config.CategoryEAMWatch, &eamWatchSettings)
	if eamWatchSettings.Enabled {
		interval := pollIntervalOr(eamWatchSettings.PollInterval, 60*time.Second)
		if err := sourceMgr.Register(ctx, func() source.Source {
			return source.NewEAMWatchSource(eamWatchSettings.URL, eamWatchSettings.Token, interval, emit, log)
		}); err != nil {
			log.Error().Err(err).Msg("eam.watch source failed to start")
		}
	}

	var youtubeSettings config.YouTubeSettings
	_ = cfgMgr.Decode(config.CategoryYouTube, &youtubeSettings)
	if youtubeSettings.Enabled && recorder != nil {
		sink := func(feedID string, frame []byte) {
			recorder.Feed(ctx, feedID, time.Now().UTC(), frame)
		}
		if err := sourceMgr.Register(ctx, func() source.Source {
			return source.NewYouTubeAudioSource(youtubeSettings.FeedID, youtubeSettings.StreamURL, sink, log)
		}); err != nil {
			log.Error().Err(err).Msg("youtube source failed to start")
		}
	} else if youtubeSettings.Enabled {
		log.Warn().Msg("youtube source enabled but whisper is not configured; skipping")
	}

	// Config changes to a source's category are logged only: the running
	// source keeps the settings it was built with until the process restarts.
	for _, cat := range []string{
		config.CategoryTAR1090, config.CategoryOpenSky, config.CategoryADSBExchange,
		config.CategoryAirframes, config.CategoryEAMWatch, config.CategoryYouTube,
	} {
		name := cat
		cfgMgr.OnChange(name, "", func(category, key, value string) {
			log.Info().Str("category", category).Msg("config changed, restart required to apply")
		})
	}

	// --- Admin HTTP surface (health/readiness/metrics/debug; the
	// WebSocket/REST edge itself is out of scope, see SPEC_FULL.md §6).

	router := adminapi.NewRouter(adminapi.Options{
		Store:     db,
		Sources:   sourceMgr,
		Bus:       b,
		Version:   fmt.Sprintf("%s (commit=%s, built=%s)", version, commit, buildTime),
		StartTime: startTime,
		Log:       log.With().Str("component", "admin_http").Logger(),
	})
	httpAddr := cfg.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	httpSrv := &http.Server{
		Addr:         httpAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("admin http server error")
		}
	}()

	// --- Periodic retention cleanup.
	go func() {
		ticker := time.NewTicker(6 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res, err := db.Cleanup(ctx, sysSettings.MessageRetentionDays, sysSettings.AircraftStaleHours, sysSettings.PhotoRetentionDays)
				if err != nil {
					log.Error().Err(err).Msg("retention cleanup failed")
					continue
				}
				log.Info().Interface("result", res).Msg("retention cleanup complete")
			}
		}
	}()

	log.Info().Str("listen", httpAddr).Dur("startup", time.Since(startTime)).Msg("airwave ready")

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sourceMgr.StopAll(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("one or more sources failed to stop cleanly")
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("admin http server shutdown error")
	}

	log.Info().Msg("airwave stopped")
}

func pollIntervalOr(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
