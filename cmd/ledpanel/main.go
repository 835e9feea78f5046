// Command ledpanel runs the display pipeline: the Arbiter, the
// Controller's tick loop, the UDP/pipe/serial ingress adapters, the sleep
// scheduler, the telemetry sampler, and the HTTP/WebSocket control
// surface, wired together the way cmd/ledcube/main.go wires the
// teacher's state/render-loop/driver-select pieces — config.yaml
// overriding flags where present, then a driver-selection switch, then
// serve-until-signal.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/ledpanel/internal/api"
	"github.com/coreman2200/ledpanel/internal/arbiter"
	"github.com/coreman2200/ledpanel/internal/config"
	"github.com/coreman2200/ledpanel/internal/controller"
	"github.com/coreman2200/ledpanel/internal/hwdriver"
	"github.com/coreman2200/ledpanel/internal/hwdriver/fake"
	"github.com/coreman2200/ledpanel/internal/hwdriver/sim"
	"github.com/coreman2200/ledpanel/internal/hwdriver/spi"
	"github.com/coreman2200/ledpanel/internal/ingress/pipe"
	"github.com/coreman2200/ledpanel/internal/ingress/udp"
	"github.com/coreman2200/ledpanel/internal/layout"
	"github.com/coreman2200/ledpanel/internal/mailbox"
	"github.com/coreman2200/ledpanel/internal/pattern"
	"github.com/coreman2200/ledpanel/internal/pattern/testpatterns"
	"github.com/coreman2200/ledpanel/internal/power"
	"github.com/coreman2200/ledpanel/internal/schedule"
	"github.com/coreman2200/ledpanel/internal/show"
	"github.com/coreman2200/ledpanel/internal/status"
	"github.com/coreman2200/ledpanel/internal/telemetry"
)

func main() {
	// ---- Flags (remain usable; config.yaml can override most) ----
	var (
		gridW      = flag.Int("grid-width", 1, "panel grid width")
		gridH      = flag.Int("grid-height", 1, "panel grid height")
		panelW     = flag.Int("panel-width", 8, "LEDs per panel row")
		panelH     = flag.Int("panel-height", 8, "LED rows per panel")
		wiring     = flag.String("wiring", "sequential", "intra-unit wiring: sequential | snake | vertical_snake")
		fps        = flag.Int("fps", 60, "target frames per second")
		brightness = flag.Float64("brightness", 0.8, "global brightness 0..1")
		driver     = flag.String("driver", "sim", "driver: spi | fake | sim")
		colorOrder = flag.String("color", "GRB", "LED color order (e.g. GRB, RGB)")
		httpAddr   = flag.String("http-addr", ":8080", "HTTP control surface listen address")
		udpAddr    = flag.String("udp-addr", ":9000", "UDP frame ingress listen address")
		powerAmps  = flag.Float64("power-limit-amps", 0, "current ceiling in amps, 0 disables the limiter")
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		simOnly    = flag.Bool("sim-only", false, "force simulation (no hardware output)")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	var cfg *config.Config
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
	} else {
		cfg = c
	}

	eGridW, eGridH, ePanelW, ePanelH := *gridW, *gridH, *panelW, *panelH
	eWiring := *wiring
	eFPS, eBright := *fps, *brightness
	eColor := *colorOrder
	eHTTPAddr, eUDPAddr := *httpAddr, *udpAddr
	ePowerAmps := *powerAmps

	desc := defaultDescription(eGridW, eGridH, ePanelW, ePanelH, eWiring)

	if cfg != nil {
		if len(cfg.Layout.Panels) > 0 {
			desc = cfg.Layout
		}
		if cfg.FPS > 0 {
			eFPS = cfg.FPS
		}
		if cfg.Brightness > 0 {
			eBright = cfg.Brightness
		}
		if cfg.ColorOrder != "" {
			eColor = cfg.ColorOrder
		}
		if cfg.Network.HTTPAddr != "" {
			eHTTPAddr = cfg.Network.HTTPAddr
		}
		if cfg.Network.UDPAddr != "" {
			eUDPAddr = cfg.Network.UDPAddr
		}
		if cfg.Power.LimitAmps > 0 {
			ePowerAmps = cfg.Power.LimitAmps
		}
	}
	powerEnabled := ePowerAmps > 0
	if !powerEnabled {
		ePowerAmps = 1e9 // ceiling is ignored while the limiter is disabled
	}

	arb, err := arbiter.New(desc, ePowerAmps, powerEnabled)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid initial layout")
	}
	if err := arb.SetBrightness(int(eBright * 255)); err != nil {
		log.Fatal().Err(err).Msg("invalid initial brightness")
	}

	if cfg != nil && cfg.Schedule.Enabled {
		win, err := schedule.ParseWindow(cfg.Schedule.Off, cfg.Schedule.On, true)
		if err != nil {
			log.Warn().Err(err).Msg("invalid schedule window; scheduler disabled")
		} else {
			sch := schedule.New(arb, win, log.Logger, 30*time.Second)
			go sch.Run(context.Background())
		}
	}

	reg := pattern.NewRegistry()
	testpatterns.Register(reg)
	if cfg != nil && cfg.Pattern.Name != "" {
		if err := arb.SetPattern(pattern.Internal(cfg.Pattern.Name, pattern.Params(cfg.Pattern.Params)), reg); err != nil {
			log.Warn().Err(err).Str("pattern", cfg.Pattern.Name).Msg("default pattern rejected; staying external")
		}
	}

	if cfg != nil && cfg.Show.Enabled && len(cfg.Show.Clips) > 0 {
		clips := make([]show.Clip, len(cfg.Show.Clips))
		for i, c := range cfg.Show.Clips {
			clips[i] = show.Clip{
				Name:      c.Name,
				Pattern:   pattern.Internal(c.Pattern, pattern.Params(c.Params)),
				DurationS: c.DurationS,
			}
		}
		player := show.NewPlayer(arb, reg)
		if err := player.Load(show.Program{Loop: cfg.Show.Loop, Clips: clips}); err != nil {
			log.Warn().Err(err).Msg("show program rejected")
		} else if err := player.Start(); err != nil {
			log.Warn().Err(err).Msg("show failed to start")
		} else {
			go func() {
				ticker := time.NewTicker(time.Second)
				defer ticker.Stop()
				for range ticker.C {
					if err := player.Tick(1.0); err != nil {
						log.Warn().Err(err).Msg("show tick failed")
					}
				}
			}()
		}
	}

	w, h := arb.Current().CanvasSize()
	mbox := mailbox.New(w, h)
	runner := pattern.NewRunner(reg)
	limiter := power.New(powerEnabled)
	if cfg != nil {
		limiter.Dynamic = cfg.Power.Dynamic
	}
	statusP := status.New()

	// ---- Driver selection: -sim-only overrides; otherwise config.driver then -driver ----
	selected := *driver
	if cfg != nil && cfg.Driver != "" {
		selected = cfg.Driver
	}
	if *simOnly {
		selected = "sim"
	}

	var drv hwdriver.Driver
	switch selected {
	case "sim":
		drv = sim.New()
	case "fake":
		drv = fake.New(log.Logger)
	case "spi":
		spiDev := "/dev/spidev0.0"
		speedHz := 2400000
		if cfg != nil {
			if cfg.SPI.Dev != "" {
				spiDev = cfg.SPI.Dev
			}
			if cfg.SPI.SpeedHz != 0 {
				speedHz = cfg.SPI.SpeedHz
			}
		}
		d, err := spi.Open(spiDev, arb.Current().LEDCount(), speedHz, eColor)
		if err != nil {
			log.Warn().Err(err).Str("dev", spiDev).Msg("SPI init failed; falling back to sim")
			drv = sim.New()
		} else {
			drv = d
		}
	default:
		log.Warn().Str("driver", selected).Msg("unknown driver; using sim")
		drv = sim.New()
	}

	ctl := controller.New(arb, mbox, runner, limiter, drv, statusP, log.Logger, eFPS)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := ctl.Run(ctx); err != nil {
			log.Error().Err(err).Msg("controller loop exited")
		}
	}()

	udpListener, err := udp.Listen(eUDPAddr, mbox, log.Logger)
	if err != nil {
		log.Warn().Err(err).Str("addr", eUDPAddr).Msg("UDP ingress not started")
	} else {
		go func() {
			if err := udpListener.Serve(); err != nil {
				log.Warn().Err(err).Msg("UDP ingress stopped")
			}
		}()
		defer udpListener.Close()
	}

	if cfg != nil && cfg.Network.Pipe != "" {
		if f, err := os.Open(cfg.Network.Pipe); err != nil {
			log.Warn().Err(err).Str("path", cfg.Network.Pipe).Msg("pipe ingress not started")
		} else {
			r := pipe.New(f, f, mbox, log.Logger)
			go func() {
				if err := r.Serve(); err != nil {
					log.Warn().Err(err).Msg("pipe ingress stopped")
				}
			}()
			defer r.Close()
		}
	}

	if cfg != nil && cfg.Network.Serial != "" {
		baud := cfg.Network.SerialBaud
		if baud == 0 {
			baud = 115200
		}
		r, err := pipe.OpenSerial(cfg.Network.Serial, baud, mbox, log.Logger)
		if err != nil {
			log.Warn().Err(err).Str("port", cfg.Network.Serial).Msg("serial ingress not started")
		} else {
			go func() {
				if err := r.Serve(); err != nil {
					log.Warn().Err(err).Msg("serial ingress stopped")
				}
			}()
			defer r.Close()
		}
	}

	// BLE peripheral advertising and GATT service registration are
	// platform-specific and outside the retrieved dependency set, so
	// internal/ingress/ble is not constructed here; there is no platform
	// BLE stack in this build to hand it a characteristic-write callback
	// (see DESIGN.md). The package is still exercised by its own tests.

	telem := telemetry.New()
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			telem.Sample()
		}
	}()

	apiSrv := api.NewServer(arb, reg, statusP, telem, log.Logger)
	go apiSrv.PollDiagnostics(time.Second)

	httpSrv := &http.Server{
		Addr:         eHTTPAddr,
		Handler:      apiSrv.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", eHTTPAddr).Str("driver", selected).Msg("HTTP server starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info().Str("signal", s.String()).Msg("shutting down")

	_ = httpSrv.Close()
	cancel()
}

// defaultDescription builds a minimal grid layout from flag-level
// dimensions, used when config.yaml carries no layout of its own.
func defaultDescription(gridW, gridH, panelW, panelH int, wiring string) layout.Description {
	panels := make([]layout.PanelDescription, 0, gridW*gridH)
	id := 0
	for row := 0; row < gridH; row++ {
		for col := 0; col < gridW; col++ {
			panels = append(panels, layout.PanelDescription{
				ID:       id,
				Position: [2]int{col, row},
				Rotation: 0,
			})
			id++
		}
	}
	return layout.Description{
		Grid: layout.GridDescription{
			GridWidth: gridW, GridHeight: gridH,
			PanelWidth: panelW, PanelHeight: panelH,
			WiringPattern: wiring,
		},
		Panels: panels,
	}
}
