package studycall

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"studycall/control"
	"studycall/coordinator"
	"studycall/cue"
	"studycall/database"
	"studycall/database/memory"
	"studycall/database/sqlite"
	"studycall/media"
	"studycall/metric"
	"studycall/peer"
	"studycall/playback"
	"studycall/signal"
)

// Client contains the servers and the call core of one user.
type Client struct {
	config Config

	metric      *metric.Metrics
	database    database.Database
	signal      *signal.Client
	media       *media.Controller
	cue         *cue.Device
	gestures    *playback.GestureHub
	sink        *playback.Sink
	coordinator *coordinator.Coordinator
	control     *control.Server
}

// Option configures a Client.
type Option func(*options)

type options struct {
	source media.Source
	dialer signal.Dialer
}

// WithSource replaces the platform capture source.
func WithSource(source media.Source) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithDialer replaces the websocket dialer of the signaling client.
func WithDialer(d signal.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// New creates a new Client. The store is opened here; everything else starts
// with Start.
func New(config Config, opts ...Option) (*Client, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.source == nil {
		o.source = media.DefaultSource(config.Media)
	}

	met := metric.New(config.Metrics)
	met.RegisterMetrics()

	db, err := openDatabase(config.Database)
	if err != nil {
		return nil, err
	}

	api, err := peer.NewAPI(config.Peer, o.source)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create webrtc api: %w", err)
	}

	var sigOpts []signal.Option
	if o.dialer != nil {
		sigOpts = append(sigOpts, signal.WithDialer(o.dialer))
	}
	sig := signal.New(config.Signal, met, sigOpts...)

	opener := cue.Discard
	if config.Audio.CueOut != "" {
		opener = cue.FileOutput(config.Audio.CueOut)
	}
	player := cue.NewDevice(opener, clock.New())

	gestures := playback.NewGestureHub()
	outputs := playback.Discard
	if config.Audio.PlaybackDir != "" {
		outputs = playback.OggFiles(config.Audio.PlaybackDir)
	}
	if !config.Audio.Autoplay {
		outputs = playback.RequireGesture(outputs, gestures)
	}

	controller := media.NewController(o.source)
	cod := coordinator.New(config.Coordinator, sig, api.NewConnection, controller, player, db, met)

	return &Client{
		config:      config,
		metric:      met,
		database:    db,
		signal:      sig,
		media:       controller,
		cue:         player,
		gestures:    gestures,
		sink:        playback.NewSink(outputs, gestures, met),
		coordinator: cod,
		control:     control.New(config.Control, config.Coordinator.UserID, cod, db, gestures),
	}, nil
}

func openDatabase(config database.Config) (database.Database, error) {
	if config.Path == "" {
		return memory.New(), nil
	}
	db, err := sqlite.Open(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Coordinator returns the call coordinator of the client.
func (c *Client) Coordinator() *coordinator.Coordinator {
	return c.coordinator
}

// Gestures returns the hub user gestures are reported to.
func (c *Client) Gestures() *playback.GestureHub {
	return c.gestures
}

// Start runs the client until ctx is done, then shuts everything down.
func (c *Client) Start(ctx context.Context) error {
	c.metric.Start()
	go c.metric.UpdateSystemMetrics(ctx)
	go func() {
		if err := c.coordinator.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("coordinator stopped")
		}
	}()

	states := c.coordinator.Subscribe()
	go func() {
		for state := range states.Receive() {
			c.sink.Sync(state.RemoteStreams)
		}
	}()

	errs := make(chan error, 1)
	if c.config.Control.Port != 0 {
		go func() {
			errs <- c.control.Start()
		}()
	}

	// Connecting early lets incoming rings arrive before the first command.
	// Commands connect again when this fails.
	if err := c.signal.Connect(ctx, c.config.Coordinator.Token); err != nil {
		log.Warn().Err(err).Msg("failed to connect to signaling server")
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errs:
	}
	c.coordinator.Unsubscribe(states)
	c.shutdown()
	return err
}

func (c *Client) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.coordinator.Close(ctx)
	c.sink.Close()
	if err := c.control.Stop(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to stop control api")
	}
	if err := c.signal.Disconnect(); err != nil {
		log.Debug().Err(err).Msg("failed to disconnect signaling")
	}
	if err := c.metric.Stop(); err != nil {
		log.Warn().Err(err).Msg("failed to stop metrics server")
	}
	if err := c.database.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close database")
	}
	log.Info().Msg("client stopped")
}
