package main

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/c2h5oh/datasize"
	"github.com/diamondburned/travelboard/client"
	"github.com/diamondburned/travelboard/dataurl"
	"github.com/diamondburned/travelboard/drafts"
	"github.com/diamondburned/travelboard/frontend"
	"github.com/diamondburned/travelboard/internal/logger"
	"github.com/diamondburned/travelboard/locator"
	"github.com/diamondburned/travelboard/postform"
	"github.com/diamondburned/travelboard/preview"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/net/http2"

	toml "github.com/pelletier/go-toml"
)

var configGlob = "./config*.toml"

func stderrlnf(f string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, f+"\n", v...)
}

type UploadConfig struct {
	MaxImageSize datasize.ByteSize `toml:"maxImageSize"`
	// ImagesOnly rejects files that don't sniff as JPEG, PNG, GIF or WebP.
	ImagesOnly bool `toml:"imagesOnly"`
}

func (c *UploadConfig) Validate() error {
	if c.MaxImageSize == 0 {
		c.MaxImageSize = dataurl.DefaultMaxSize
	}
	return nil
}

type Config struct {
	SocketPath string `toml:"socketPath"`
	SocketPerm string `toml:"socketPerm"`
	Address    string `toml:"address"`
	LogLevel   string `toml:"logLevel"`

	Backend   client.BackendConfig   `toml:"backend"`
	Countries client.CountriesConfig `toml:"countries"`
	Map       locator.MapConfig      `toml:"map"`
	Upload    UploadConfig           `toml:"upload"`
	Drafts    drafts.Config          `toml:"drafts"`
	Preview   preview.Config         `toml:"preview"`
	Front     frontend.FrontConfig   `toml:"front"`
}

func NewConfig() Config {
	return Config{
		Address:   ":8080",
		LogLevel:  "info",
		Backend:   client.NewBackendConfig(),
		Countries: client.NewCountriesConfig(),
		Map:       locator.NewMapConfig(),
		Upload:    UploadConfig{MaxImageSize: dataurl.DefaultMaxSize},
		Drafts:    drafts.NewConfig(),
		Preview:   preview.NewConfig(),
		Front:     frontend.NewConfig(),
	}
}

// Validator is used for configs.
type Validator interface {
	Validate() error
}

func (c *Config) Validate() error {
	var fields = []Validator{
		&c.Backend,
		&c.Countries,
		&c.Map,
		&c.Upload,
		&c.Drafts,
		&c.Preview,
		&c.Front,
	}

	for _, v := range fields {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	if c.SocketPath == "" && c.Address == "" {
		return errors.New("missing `socketPath' or `address'")
	}

	return nil
}

// envOverrides maps environment variables to the config values they replace.
func (c *Config) envOverrides() map[string]*string {
	return map[string]*string{
		"TRAVELBOARD_BACKEND_URL":   &c.Backend.URL,
		"TRAVELBOARD_COUNTRIES_URL": &c.Countries.URL,
		"TRAVELBOARD_MAP_KEY":       &c.Map.APIKey,
	}
}

func init() {
	pflag.StringVarP(
		&configGlob, "config", "c", configGlob,
		"Path to config file with glob support for fallback",
	)

	pflag.Usage = func() {
		stderrlnf("Usage: %s [subcommand] [flags...]", filepath.Base(os.Args[0]))
		stderrlnf("Subcommands:")
		stderrlnf("  serve          Run the HTTP server (default)")
		stderrlnf("  submit         Submit a single post from flags")
		stderrlnf("Flags:")
		pflag.PrintDefaults()
	}
}

func main() {
	// Everything after the subcommand belongs to it.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		stderrlnf("Failed to load .env: %v", err)
	}

	cfg, err := loadConfig(configGlob)
	if err != nil {
		stderrlnf("%v", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	switch pflag.Arg(0) {
	case "submit":
		if err := submit(cfg, log, pflag.Args()[1:]); err != nil {
			log.Fatal().Err(err).Msg("Submit failed")
		}

	case "serve", "":
		if err := serve(cfg, log); err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}

	default:
		pflag.Usage()
		os.Exit(2)
	}
}

func loadConfig(glob string) (Config, error) {
	var cfg = NewConfig()

	d, err := filepath.Glob(glob)
	if err != nil {
		return cfg, errors.Wrap(err, "Failed to glob")
	}

	if len(d) == 0 {
		stderrlnf("No config files match %q, using defaults.", glob)
	}

	for _, path := range d {
		f, err := ioutil.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "Failed to read globbed config file")
		}

		t, err := toml.LoadBytes(f)
		if err != nil {
			return cfg, errors.Wrapf(err, "Failed to load TOML from %s", path)
		}

		if err := t.Unmarshal(&cfg); err != nil {
			return cfg, errors.Wrapf(err, "Failed to unmarshal %s", path)
		}
	}

	for env, value := range cfg.envOverrides() {
		if v := os.Getenv(env); v != "" {
			*value = v
		}
	}

	return cfg, nil
}

// newForms creates the collaborators shared by all forms.
func newForms(cfg Config, log *zerolog.Logger) (postform.Deps, error) {
	backend, err := client.NewBackend(cfg.Backend)
	if err != nil {
		return postform.Deps{}, errors.Wrap(err, "Failed to create backend client")
	}

	countries, err := client.NewCountries(cfg.Countries)
	if err != nil {
		return postform.Deps{}, errors.Wrap(err, "Failed to create countries client")
	}

	return postform.Deps{
		Backend:   backend,
		Countries: countries,
		Encoder: postform.DataURLEncoder{
			MaxSize:    cfg.Upload.MaxImageSize,
			ImagesOnly: cfg.Upload.ImagesOnly,
		},
		Logger: log,
	}, nil
}

func serve(cfg Config, log zerolog.Logger) error {
	deps, err := newForms(cfg, &log)
	if err != nil {
		return err
	}

	db, err := drafts.NewDatabase(cfg.Drafts)
	if err != nil {
		return errors.Wrap(err, "Failed to open drafts database")
	}
	defer db.Close()

	store := drafts.NewStore(db, deps, cfg.Map.Center())
	defer store.Close()

	f, err := frontend.New(cfg.Front, frontend.Deps{
		Drafts:       store,
		Previews:     preview.NewGenerator(preview.NewCache(cfg.Preview)),
		Map:          cfg.Map,
		MaxImageSize: cfg.Upload.MaxImageSize,
		Logger:       log,
	})
	if err != nil {
		return errors.Wrap(err, "Failed to create frontend")
	}

	c := middleware.NewCompressor(5)
	c.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})

	mux := chi.NewMux()
	mux.Use(middleware.RealIP, middleware.Recoverer, c.Handler)
	mux.Mount("/", f)

	l, err := listen(cfg)
	if err != nil {
		return err
	}

	var server = http.Server{
		Handler: mux,
	}

	// Explicitly set up HTTP/2.
	err = http2.ConfigureServer(&server, &http2.Server{
		MaxHandlers:          4096,
		MaxConcurrentStreams: 1024,
	})
	if err != nil {
		return errors.Wrap(err, "Failed to configure HTTP/2 server")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go sweep(ctx, store, log)

	var serveErr = make(chan error, 1)
	go func() { serveErr <- server.Serve(l) }()

	log.Info().Str("addr", l.Addr().String()).Msg("Listening")

	select {
	case err := <-serveErr:
		return errors.Wrap(err, "Failed to serve")
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")

	// Give the server a 10 seconds timeout for shutting down.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	return errors.Wrap(server.Shutdown(shutdownCtx), "Failed to gracefully close the server")
}

func listen(cfg Config) (net.Listener, error) {
	if cfg.SocketPath == "" {
		l, err := net.Listen("tcp", cfg.Address)
		return l, errors.Wrap(err, "Failed to listen")
	}

	// Clean up the socket left by an unclean exit.
	if err := os.Remove(cfg.SocketPath); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "Failed to clean up old socket")
	}

	l, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to listen to Unix socket")
	}

	if cfg.SocketPerm != "" {
		o, err := strconv.ParseUint(cfg.SocketPerm, 8, 32)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to parse socket perm in octal")
		}
		if err := os.Chmod(cfg.SocketPath, os.FileMode(o)); err != nil {
			return nil, errors.Wrap(err, "Failed to chmod socket")
		}
	}

	return l, nil
}

const sweepEvery = time.Minute

func sweep(ctx context.Context, store *drafts.Store, log zerolog.Logger) {
	t := time.NewTicker(sweepEvery)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if err := store.Sweep(ctx, now); err != nil {
				log.Warn().Err(err).Msg("Failed to sweep drafts")
			}
		}
	}
}
