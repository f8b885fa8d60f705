package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/cjeanneret/photobooth/internal/config"
	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/event"
	"github.com/cjeanneret/photobooth/internal/hw/button"
	"github.com/cjeanneret/photobooth/internal/hw/camera"
	"github.com/cjeanneret/photobooth/internal/hw/gpio"
	"github.com/cjeanneret/photobooth/internal/hw/keyboard"
	"github.com/cjeanneret/photobooth/internal/hw/printer"
	"github.com/cjeanneret/photobooth/internal/hw/webcam"
	"github.com/cjeanneret/photobooth/internal/logic/booth"
	"github.com/cjeanneret/photobooth/internal/logic/compose"
	"github.com/cjeanneret/photobooth/internal/metrics"
	"github.com/cjeanneret/photobooth/internal/storage"
	"github.com/cjeanneret/photobooth/internal/view"
	"github.com/cjeanneret/photobooth/internal/web"
)

const terminalWidth = 48

// CLI flags
var (
	cfgPath   string
	debugFlag int
	mockFlag  bool
	webPort   = &webPortFlag{defaultPort: 8080}
)

var rootCmd = &cobra.Command{
	Use:   "photobooth",
	Short: "Photobooth kiosk controller",
	Long: `Photobooth drives a photo booth: live webcam preview, countdown,
capture, review, and printing of a two-strip sheet, controlled by two
illuminated buttons, the keyboard arrows, or the web panel.

Examples:
  photobooth
  photobooth --config configs/default.yaml --debug 2
  photobooth --mock --web
  photobooth --web=8980`,
	SilenceUsage: true,
	RunE:         runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", filepath.Join("configs", "default.yaml"), "path to config file")
	rootCmd.Flags().Var(webPort, "web", "start the web panel; --web for port 8080, --web=8980 for a custom port")
	rootCmd.Flags().Lookup("web").NoOptDefVal = strconv.Itoa(webPort.defaultPort)
	rootCmd.Flags().IntVar(&debugFlag, "debug", -1, "override the debug level (0-4)")
	rootCmd.Flags().BoolVar(&mockFlag, "mock", false, "use mock GPIO, webcam and printer")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	if err := config.ValidateConfigPath(cfgPath); err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyFlags(cfg, debugFlag, mockFlag, webPort.port()); err != nil {
		return err
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return run(ctx, cfg)
}

// applyFlags overrides cfg with the command line. debugLevel < 0 and
// port 0 mean "keep the config value".
func applyFlags(cfg *config.Config, debugLevel int, mock bool, port int) error {
	if debugLevel >= 0 {
		if debugLevel > debug.LevelTrace {
			return fmt.Errorf("--debug must be between 0 and %d, got %d", debug.LevelTrace, debugLevel)
		}
		cfg.Defaults.DebugLevel = debugLevel
	}
	if mock {
		cfg.Defaults.MockGPIO = true
		cfg.Webcam.Type = "mock"
		cfg.Printer.Type = "mock"
	}
	if port > 0 {
		cfg.Defaults.WebPort = port
	}
	return nil
}

// settingsFromConfig maps the booth section of the config to session settings.
func settingsFromConfig(cfg *config.Config) booth.Settings {
	return booth.Settings{
		CountdownStart: cfg.Booth.CountdownStart,
		CountdownTick:  cfg.CountdownTick(),
		CountdownRates: cfg.CountdownRates(),
		InputLockout:   cfg.InputLockout(),
		PrintNotify:    cfg.PrintNotify(),
		PrintPoll:      cfg.PrintPoll(),
		LightsPeriod:   cfg.LightsPeriod(),
		MaxPrintCount:  cfg.Booth.MaxPrintCount,
		MinPhotos:      cfg.Booth.MinPhotos,
	}
}

// run wires the hardware to the session and blocks until the booth exits.
func run(ctx context.Context, cfg *config.Config) error {
	clock := clockwork.NewRealClock()
	loop := event.NewLoop(clock)

	// Initialize GPIO driver
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		return fmt.Errorf("init GPIO: %w", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			debug.Warn("closing GPIO driver failed: %v", err)
		}
	}()

	// Illuminated buttons
	debug.Step(2, "Initializing buttons")
	left, err := button.NewIlluminatedButton(gpioDriver, "left", cfg.Buttons.LeftLedPin, cfg.Buttons.LeftButtonPin)
	if err != nil {
		return fmt.Errorf("init left button: %w", err)
	}
	right, err := button.NewIlluminatedButton(gpioDriver, "right", cfg.Buttons.RightLedPin, cfg.Buttons.RightButtonPin)
	if err != nil {
		return fmt.Errorf("init right button: %w", err)
	}
	debug.PrintStruct("Buttons config", cfg.Buttons)
	watcher := button.NewWatcher(gpioDriver, clock, cfg.ButtonPoll(), cfg.Debounce(), loop.PostKey)
	watcher.Bind(left.ButtonPin(), event.KeyLeft)
	watcher.Bind(right.ButtonPin(), event.KeyRight)

	// Webcam and camera
	debug.Step(3, "Opening webcam")
	cam, err := newWebcamFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init webcam: %w", err)
	}
	defer cam.Close()
	debug.Value("Webcam type", cfg.Webcam.Type)
	photos := storage.New(cfg.Storage.Dir, clock)
	shooter := camera.NewWebcamCamera(cam, photos)

	// Printer
	debug.Step(4, "Starting printer")
	svc, err := newPrinterFromConfig(cfg, clock)
	if err != nil {
		return err
	}
	if err := svc.Start(); err != nil {
		return fmt.Errorf("start printer: %w", err)
	}
	debug.Value("Printer type", cfg.Printer.Type)

	composer, err := compose.New(cfg.Compose.Template)
	if err != nil {
		return fmt.Errorf("init composer: %w", err)
	}

	// Keyboard. Log lines need CRLF while stdin is raw.
	console := io.Writer(os.Stdout)
	term, err := keyboard.OpenTerminal()
	if err != nil {
		debug.Warn("Keyboard disabled: %v", err)
	} else {
		defer term.Close()
		console = keyboard.NewRawWriter(os.Stdout)
		debug.SetOutput(console)
	}

	// Screens
	debug.Step(5, "Initializing display")
	display := view.NewDisplay(loop, cam, cfg.PreviewInterval())
	if !debug.IsEnabled(debug.LevelInfo) {
		display.AddSink(view.NewTerminal(os.Stdout, terminalWidth))
	} else {
		debug.Info("Terminal screen disabled while debug output is on")
	}
	loop.BindRepaint(display.Paint)

	var observer func(booth.Status)
	webCtx, stopWeb := context.WithCancel(ctx)
	defer stopWeb()
	webDone := make(chan struct{})
	close(webDone)
	webErr := make(chan error, 1)
	if port := cfg.Defaults.WebPort; port > 0 {
		debug.Step(6, "Starting web panel")
		broadcaster := web.NewStatusBroadcaster(clock)
		debug.SetOutput(io.MultiWriter(console, web.BroadcastWriter(broadcaster)))
		panel := web.NewPanel(broadcaster)
		display.AddSink(panel)
		observer = panel.Publish

		diskPath := cfg.Storage.Dir
		if diskPath == "" {
			diskPath = cfg.Printer.WorkDir
		}
		srv, err := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, panel, loop.PostKey, web.NewPanelConfig(cfg), diskPath)
		if err != nil {
			return err
		}
		webDone = make(chan struct{})
		go func() {
			defer close(webDone)
			if err := srv.Run(webCtx); err != nil {
				webErr <- fmt.Errorf("web panel: %w", err)
				loop.Stop()
			}
		}()
	}

	// Session
	debug.Step(7, "Creating session")
	settings := settingsFromConfig(cfg)
	debug.PrintStruct("Session settings", settings)
	session, err := booth.New(booth.Deps{
		Context:  loop,
		Clock:    clock,
		Camera:   shooter,
		Photos:   photos,
		Composer: composer,
		Printer:  svc,
		Renderer: display,
		Left:     left,
		Right:    right,
		Exit:     loop.Stop,
		Observer: observer,
		Metrics:  metrics.Session{},
	}, settings)
	if err != nil {
		return err
	}

	// Inputs
	if term != nil {
		go func() {
			if err := term.Reader(loop.PostKey).Run(); err != nil {
				debug.Error(fmt.Errorf("keyboard: %w", err))
			}
		}()
	}
	go watcher.Run(webCtx)

	debug.Summary("Photobooth ready")
	loop.Post(session.Start)
	err = loop.Run(ctx)

	stopWeb()
	<-webDone
	select {
	case werr := <-webErr:
		err = errors.Join(err, werr)
	default:
	}
	debug.Section("Shutdown")
	return err
}

// closableWebcam is a webcam that owns a device.
type closableWebcam interface {
	webcam.Webcam
	Close() error
}

// newWebcamFromConfig selects a webcam implementation based on configuration.
func newWebcamFromConfig(cfg *config.Config) (closableWebcam, error) {
	switch cfg.Webcam.Type {
	case "v4l2":
		cam, err := webcam.OpenV4L2(cfg.Webcam.Device, cfg.Webcam.Width, cfg.Webcam.Height)
		if err != nil {
			return nil, err
		}
		return cam, nil
	case "mock":
		return webcam.NewMock(cfg.Webcam.Width, cfg.Webcam.Height), nil
	default:
		return nil, fmt.Errorf("unsupported webcam type: %s", cfg.Webcam.Type)
	}
}

// newPrinterFromConfig selects a printer implementation based on configuration.
func newPrinterFromConfig(cfg *config.Config, clock clockwork.Clock) (printer.Service, error) {
	switch cfg.Printer.Type {
	case "cups":
		client := printer.NewClient(cfg.Printer.Host, cfg.Printer.Port)
		return printer.NewCups(cfg.Printer.Name, cfg.Printer.WorkDir, client, clock), nil
	case "mock":
		return &printer.Mock{AutoFinish: true}, nil
	default:
		return nil, fmt.Errorf("unsupported printer type: %s", cfg.Printer.Type)
	}
}

// webPortFlag implements pflag.Value for --web: 0 = disabled, --web or --web= → 8080, --web=8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) Type() string { return "port" }

func (w *webPortFlag) port() int { return w.val }
