package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"codeberg.org/mutker/pentactl/internal/action"
	"codeberg.org/mutker/pentactl/internal/button"
	"codeberg.org/mutker/pentactl/internal/config"
	"codeberg.org/mutker/pentactl/internal/disktemp"
	"codeberg.org/mutker/pentactl/internal/fan"
	"codeberg.org/mutker/pentactl/internal/hw"
	"codeberg.org/mutker/pentactl/internal/iostat"
	"codeberg.org/mutker/pentactl/internal/logger"
	"codeberg.org/mutker/pentactl/internal/pid"
	"codeberg.org/mutker/pentactl/internal/state"
	"codeberg.org/mutker/pentactl/internal/sysinfo"
	"codeberg.org/mutker/pentactl/internal/telemetry"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		// A broken config file is not fatal: Load hands back the
		// complete default set
		fmt.Fprintf(os.Stderr, "config error, using defaults: %v\n", err)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	cfg.SetLogLevel()
	logger.Debug().Msg("Config loaded")
}

func main() {
	// Startup failures exit through run's return value so the deferred
	// cleanup (pid file, PWM disable) still happens; logger.Fatal would
	// skip the defers.
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	if err := pid.Write(); err != nil {
		logger.Error().Err(err).Msg("failed to write pid file")
		return err
	}
	defer pid.Remove()

	// Actuator and input failures at startup are the only fatal
	// conditions in the daemon
	pwm, err := hw.NewSysfsFan("")
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize fan PWM")
		return err
	}
	defer pwm.Close()

	key, err := hw.NewSysfsButton("")
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize button input")
		return err
	}
	defer key.Close()

	store := state.New(cfg.PageCount())

	collector, err := telemetry.NewService(telemetry.Config{
		Enabled: cfg.Telemetry.Enabled,
		DBPath:  cfg.Telemetry.DBPath,
	})
	if err != nil {
		logger.Error().Err(err).Msg("telemetry unavailable, continuing without it")
		collector, _ = telemetry.NewService(telemetry.Config{})
	}
	defer collector.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	var wg sync.WaitGroup
	run := func(f func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(ctx)
		}()
	}

	// Fan control loop
	cpuSensor := hw.NewThermalZoneSensor("")
	curve := fan.NewCurve(cfg.Fan)
	controller := fan.NewController(curve, pwm, cpuSensor, store,
		time.Duration(cfg.Fan.Refresh*float64(time.Second)), cfg.Fan.TempDisks)
	controller.OnRecompute(func(temp, duty float64) {
		snapshot := &telemetry.Snapshot{
			Timestamp:       time.Now(),
			CPUTemp:         temp,
			DiskTempAverage: store.DiskTempAverage(),
			Duty:            duty,
			FanEnabled:      store.FanEnabled(),
			DisplayPage:     store.DisplayIndex(),
		}
		if err := collector.Record(ctx, snapshot); err != nil {
			logger.Debug().Err(err).Msg("telemetry record failed")
		}
	})
	run(controller.Run)

	// Button sampling and action dispatch
	recognizer := button.NewRecognizer(cfg.Time.Twice, cfg.Time.Press)
	sampler := button.NewSampler(key, recognizer)
	dispatcher := action.NewDispatcher(store, cfg.Key)
	run(sampler.Run)
	run(func(ctx context.Context) {
		dispatcher.Run(ctx, sampler.Gestures())
	})

	// Disk temperature poller, only when something consumes the average
	if cfg.Fan.TempDisks || cfg.Disk.DisksTemp {
		poller := disktemp.NewPoller(store,
			time.Duration(cfg.DiskTempPollDelay()*float64(time.Second)), nil, nil)
		run(poller.Run)
	}

	// Display state loop: page auto-advance and the data feeding the
	// external renderer
	run(func(ctx context.Context) {
		displayLoop(ctx, store, cpuSensor)
	})

	logger.Info().Msg("pentactl started")
	wg.Wait()
	logger.Info().Msg("Exiting...")

	return nil
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

// displayLoop keeps the display-facing state fresh: it refreshes the io
// rate samplers, advances the page index when auto-rotation is on, and
// logs the current page content for the external renderer to pick up.
func displayLoop(ctx context.Context, store *state.Store, cpu hw.TempSensor) {
	interval := time.Duration(cfg.Slider.Time * float64(time.Second))
	if cfg.Slider.Refresh > 0 {
		interval = time.Duration(cfg.Slider.Refresh * float64(time.Second))
	}

	diskSampler := iostat.NewDiskSampler(iostat.ResolveDisks(cfg.Disk.IoUsageMntPoints), "")
	netSampler := iostat.NewNetworkSampler(iostat.ResolveInterfaces(cfg.Network.Interfaces))
	diskUsage := sysinfo.NewDiskUsage(cfg.Disk.SpaceUsageMntPoints)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			diskSampler.Refresh(now)
			netSampler.Refresh(now)

			page := store.DisplayIndex()
			if cfg.Slider.Auto {
				page = store.NextDisplayIndex()
			}

			cpuTemp, err := cpu.Read()
			if err != nil {
				cpuTemp = 0
			}

			logger.Debug().
				Int("page", page).
				Str("uptime", sysinfo.Uptime()).
				Str("ip", sysinfo.IPAddress()).
				Str("cpu", sysinfo.CPULoad()).
				Str("cpu_temp", sysinfo.CPUTemp(cpuTemp, cfg.OLED.FTemp)).
				Str("mem", sysinfo.Memory()).
				Strs("disks", diskUsage.Lines(now)).
				Float64("disk_temp_avg", store.DiskTempAverage()).
				Msg("display state refreshed")
		}
	}
}
