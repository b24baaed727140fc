package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/mechctl/internal/config"
	"github.com/san-kum/mechctl/internal/executor"
	"github.com/san-kum/mechctl/internal/hal"
	"github.com/san-kum/mechctl/internal/scenario"
	"github.com/san-kum/mechctl/internal/telemetry"
	"github.com/san-kum/mechctl/internal/tune"
	"github.com/san-kum/mechctl/internal/viz"
)

// hardwareOptions opens GPIO and wires the beam break and flywheel PWM
// when hardware is enabled. The returned func releases GPIO.
func hardwareOptions(cfg *config.Config) ([]scenario.Option, func(), error) {
	hw := cfg.Hardware
	if !hw.Enabled {
		return nil, func() {}, nil
	}
	if err := hal.OpenGPIO(); err != nil {
		return nil, nil, err
	}
	flywheel := hal.NewPWMActuator(hw.FlywheelPin, false)
	opts := []scenario.Option{
		scenario.WithNoteDetector(hal.NewBeamBreak(hw.NoteDetectorPin, hw.ActiveLow)),
		scenario.WithFlywheelTap(flywheel),
	}
	log.WithFields(log.Fields{
		"note_detector_pin": hw.NoteDetectorPin,
		"flywheel_pin":      hw.FlywheelPin,
	}).Info("gpio hardware attached")
	return opts, func() {
		flywheel.Stop()
		if err := hal.CloseGPIO(); err != nil {
			log.WithError(err).Warn("close gpio")
		}
	}, nil
}

func liveCommand() *cobra.Command {
	var gpio bool
	cmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "run a scenario with live visualization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if gpio {
				cfg.Hardware.Enabled = true
			}
			sc, err := scenario.Resolve(args[0], cfg)
			if err != nil {
				return err
			}
			opts, release, err := hardwareOptions(cfg)
			if err != nil {
				return err
			}
			defer release()

			// Log lines would tear the alternate screen.
			if log.GetLevel() > log.ErrorLevel {
				log.SetLevel(log.ErrorLevel)
			}

			m, err := viz.NewModel(cfg, sc, opts...)
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().BoolVar(&gpio, "gpio", false, "attach Raspberry Pi GPIO hardware")
	return cmd
}

func serveCommand() *cobra.Command {
	var (
		listen string
		gpio   bool
	)
	cmd := &cobra.Command{
		Use:   "serve [scenario]",
		Short: "run the bench in real time and publish prometheus metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if gpio {
				cfg.Hardware.Enabled = true
			}
			if listen != "" {
				cfg.Telemetry.Listen = listen
			}

			sc := &scenario.Scenario{Name: "idle"}
			if len(args) == 1 {
				if sc, err = scenario.Resolve(args[0], cfg); err != nil {
					return err
				}
			}

			opts, release, err := hardwareOptions(cfg)
			if err != nil {
				return err
			}
			defer release()

			ctx, cancel := signalContext()
			defer cancel()
			return serve(ctx, cfg, sc, opts...)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "metrics listen address (defaults to telemetry.listen)")
	cmd.Flags().BoolVar(&gpio, "gpio", false, "attach Raspberry Pi GPIO hardware")
	return cmd
}

// serve runs the bench until ctx is done, with a metrics endpoint
// alongside. The scenario's events are issued once; the bench keeps
// ticking after the last one.
func serve(ctx context.Context, cfg *config.Config, sc *scenario.Scenario, opts ...scenario.Option) error {
	bench, err := scenario.NewBench(cfg, opts...)
	if err != nil {
		return err
	}
	pub, err := telemetry.NewPublisher(cfg.Telemetry.Namespace, bench.Sources()...)
	if err != nil {
		return err
	}
	bench.Executor.AddObserver(pub)
	if err := bench.Load(sc); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", pub.Handler())
	srv := &http.Server{Addr: cfg.Telemetry.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		res, err := bench.Executor.Run(ctx, executor.Config{
			Period:   cfg.PeriodDuration(),
			Realtime: true,
		})
		if errors.Is(err, executor.ErrCanceled) {
			log.WithFields(log.Fields{"ticks": res.Ticks, "overruns": len(res.Overruns)}).Info("bench stopped")
			return nil
		}
		return err
	})
	return g.Wait()
}

func tuneCommand() *cobra.Command {
	var (
		kp, ki, kd []float64
		scName     string
		metric     string
		workers    int
		top        int
	)
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search intake PID gains against a scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sc, err := scenario.Resolve(scName, cfg)
			if err != nil {
				return err
			}

			score, err := tune.ParseScore(metric)
			if err != nil {
				return err
			}

			names := []string{tune.ParamKp, tune.ParamKi, tune.ParamKd}
			ranges := [][]float64{kp, ki, kd}
			gs := tune.NewGridSearch(names, ranges)
			if workers > 0 {
				gs.SetWorkers(workers)
			}

			ctx, cancel := signalContext()
			defer cancel()

			best, all, err := gs.Search(ctx, tune.IntakeGains(cfg, sc), score)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KP\tKI\tKD\tSCORE")
			for i, c := range all {
				if i >= top {
					break
				}
				fmt.Fprintf(w, "%.4f\t%.4f\t%.4f\t%.6f\n", c.Params[tune.ParamKp], c.Params[tune.ParamKi], c.Params[tune.ParamKd], c.Score)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\nbest: kp=%.4f ki=%.4f kd=%.4f (%s %.6f)\n",
				best.Params[tune.ParamKp], best.Params[tune.ParamKi], best.Params[tune.ParamKd], metric, best.Score)
			return nil
		},
	}
	cmd.Flags().Float64SliceVar(&kp, "kp", tune.Linspace(0.05, 0.5, 10), "proportional gains to try")
	cmd.Flags().Float64SliceVar(&ki, "ki", []float64{0}, "integral gains to try")
	cmd.Flags().Float64SliceVar(&kd, "kd", []float64{0}, "derivative gains to try")
	cmd.Flags().StringVar(&scName, "scenario", "intake-seek", "scenario to score against")
	cmd.Flags().StringVar(&metric, "metric", "intake.tracking_error", "metric or bracketed expression to minimize, e.g. \"[intake.tracking_error] + 0.5*[intake.output_spread]\"")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel evaluations (defaults to cpu count)")
	cmd.Flags().IntVar(&top, "top", 10, "number of candidates to list")
	return cmd
}
