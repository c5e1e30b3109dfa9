package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"reflect"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/scenestream/featureflag"
	sshttp "github.com/aukilabs/scenestream/http"
	"github.com/aukilabs/scenestream/resource"
	"github.com/aukilabs/scenestream/scene"
	"github.com/aukilabs/scenestream/stream"
	"github.com/aukilabs/scenestream/tree"
	"github.com/aukilabs/scenestream/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
)

var (
	// The Scenestream version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "scenestream_info",
		Help:        "Scenestream information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"SCENESTREAM_ADDR"                 help:"Listening address for viewers."`
	AdminAddr          string        `cli:""        env:"SCENESTREAM_ADMIN_ADDR"           help:"Admin listening address."`
	Scene              string        `cli:""        env:"SCENESTREAM_SCENE"                help:"The scene manifest to stream (.yaml or .yaml.zst)."`
	ResourceDir        string        `cli:""        env:"SCENESTREAM_RESOURCE_DIR"         help:"The directory scene object resources are loaded from."`
	LogLevel           string        `cli:""        env:"SCENESTREAM_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"SCENESTREAM_LOG_INDENT"           help:"Indent logs."`
	FrameDuration      time.Duration `cli:",hidden" env:"SCENESTREAM_FRAME_DURATION"       help:"The duration of a streaming frame."`
	ViewerBuffer       int           `cli:",hidden" env:"SCENESTREAM_VIEWER_BUFFER"        help:"The number of events buffered per viewer."`
	ShutdownTimeout    time.Duration `cli:",hidden" env:"SCENESTREAM_SHUTDOWN_TIMEOUT"     help:"The maximum duration to wait for in-flight requests on shutdown."`
	LogSummaryInterval time.Duration `cli:",hidden" env:"SCENESTREAM_LOG_SUMMARY_INTERVAL" help:"The duration between each log summary by viewer."`
	Events             eventsConfig  `cli:",hidden" env:"-"                                help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"SCENESTREAM_FEATURE_FLAGS"        help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                                help:"Show version."`
	Help               bool          `cli:""        env:"-"                                help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"SCENESTREAM_EVENTS_ENDPOINT"       help:"Endpoint to where log events are pushed. Disabled when empty."`
	FlushInterval time.Duration `cli:",hidden" env:"SCENESTREAM_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"SCENESTREAM_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"SCENESTREAM_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		ResourceDir:        ".",
		LogLevel:           logs.InfoLevel.String(),
		FrameDuration:      time.Millisecond * 15,
		ViewerBuffer:       512,
		ShutdownTimeout:    time.Second * 10,
		LogSummaryInterval: time.Minute,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Streams a scene around a moving observer.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "scenestream",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	flags := featureflag.New(conf.FeatureFlags)

	manifest, err := scene.Load(conf.Scene)
	if err != nil {
		logs.Fatal(errors.New("loading scene failed").Wrap(err))
	}

	cache := resource.NewCache(manifest.Name, resource.DirLoader(conf.ResourceDir))
	hub := websocket.NewHub(conf.ViewerBuffer)
	hub.SummaryInterval = conf.LogSummaryInterval
	defer hub.Close()

	opts, err := manifest.StreamOptions(stream.Parent{
		Name:      manifest.Name,
		Resources: cache,
	})
	if err != nil {
		logs.Fatal(err)
	}
	opts.SharedTree = true
	flags.IfSet(featureflag.FlagSynchronousStreaming, func() {
		opts.Async = false
	})
	flags.IfNotSet(featureflag.FlagDisableEventStream, func() {
		opts.Observer = hub.Publish
	})

	controller, err := stream.NewController(opts)
	if err != nil {
		logs.Fatal(err)
	}
	for _, p := range manifest.Props() {
		controller.Add(p)
	}

	observer, err := scene.NewObserver(manifest.Observer)
	if err != nil {
		logs.Fatal(err)
	}

	s := &streamer{
		controller: controller,
		observer:   observer,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.run(ctx, conf.FrameDuration)
	}()

	var service http.ServeMux
	flags.IfNotSet(featureflag.FlagDisableEventStream, func() {
		service.Handle("/events", hub.Handler())
	})
	flags.IfNotSet(featureflag.FlagDisableTreeDebug, func() {
		service.Handle("/debug/tree", sshttp.HandleWithCORS(sshttp.HandleTreeDebug(
			func() tree.DebugInfo {
				return controller.Tree().DebugInfo()
			},
			sshttp.DefaultGradient(),
		)))
	})
	service.Handle("/stats", sshttp.HandleWithCORS(sshttp.HandleStats(s.stats)))
	service.Handle("/version", sshttp.HandleWithCORS(sshttp.HandleVersion(version)))

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", sshttp.HandleHealthCheck)
	admin.HandleFunc("/ready", sshttp.HandleReadyCheck(s.ready))
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("scene", manifest.Name).
		WithTag("objects", len(manifest.Objects)).
		WithTag("feature_flags", conf.FeatureFlags).
		Info("starting scenestream server")

	sshttp.ListenAndServe(ctx, conf.ShutdownTimeout,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			sshttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)

	wg.Wait()
	s.unload(context.Background())
	logs.WithTag("resources", cache.Len()).Info("scene unloaded")
}

// streamer moves the observer and streams the scene around it on each frame.
type streamer struct {
	mutex      sync.Mutex
	controller *stream.Controller
	observer   *scene.Observer
	frames     atomic.Int64
}

func (s *streamer) run(ctx context.Context, frameDuration time.Duration) {
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return

		case now := <-ticker.C:
			s.frame(ctx, now.Sub(last))
			last = now
		}
	}
}

func (s *streamer) frame(ctx context.Context, dt time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.observer.Advance(dt)
	s.controller.Refresh(ctx, s.observer.Detector, dt)
	s.controller.Tick(ctx)
	s.frames.Add(1)
}

func (s *streamer) stats() stream.Stats {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.controller.Stats()
}

func (s *streamer) ready() error {
	if s.frames.Load() == 0 {
		return errors.New("scene is not streamed yet")
	}
	return nil
}

func (s *streamer) unload(ctx context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.controller.Unload(ctx)
}

func validateConfig(conf config) error {
	if conf.Scene == "" {
		return errors.New("scene manifest is not specified")
	}

	if conf.FrameDuration <= 0 {
		return errors.New("invalid frame duration").
			WithTag("frame_duration", conf.FrameDuration)
	}

	if info, err := os.Stat(conf.ResourceDir); err != nil {
		return errors.New("invalid resource directory").
			WithTag("resource_dir", conf.ResourceDir).
			Wrap(err)
	} else if !info.IsDir() {
		return errors.New("resource directory is not a directory").
			WithTag("resource_dir", conf.ResourceDir)
	}

	return nil
}
