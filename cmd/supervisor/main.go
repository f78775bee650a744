// Command supervisor owns the shared state and the six actors that
// simulate the drone's control stack.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"dronesim/internal/actor/accel"
	"dronesim/internal/actor/battery"
	"dronesim/internal/actor/flightctrl"
	"dronesim/internal/actor/gps"
	"dronesim/internal/actor/telemetry"
	"dronesim/internal/actor/watchdog"
	"dronesim/internal/obslog"
	"dronesim/internal/shared"
	"dronesim/internal/supervisor"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) != 5 {
		fmt.Fprintf(os.Stderr, "Usage: %s <operator_ip> <telemetry_port> <drone_ip> <flight_ctrl_port>\n", args[0])
		return 1
	}

	telemetryPort, err := strconv.ParseUint(args[2], 10, 16)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad telemetry port: %v\n", err)
		return 1
	}
	flightCtrlPort, err := strconv.ParseUint(args[4], 10, 16)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad flight controller port: %v\n", err)
		return 1
	}

	cfg := shared.NetworkConfig{
		OperatorIP:     args[1],
		TelemetryPort:  uint16(telemetryPort),
		DroneIP:        args[3],
		FlightCtrlPort: uint16(flightCtrlPort),
	}

	log := obslog.New("supervisor", os.Stderr, obslog.DefaultLevel)
	state := shared.NewState(cfg)

	sup := supervisor.New(state, log)

	sup.Register("battery", func(ctx context.Context) error {
		return battery.Run(ctx, battery.Deps{State: state, Log: obslog.New("battery", os.Stderr, obslog.DefaultLevel), Shutdown: sup.ShutdownChan()})
	})
	sup.Register("accel", func(ctx context.Context) error {
		return accel.Run(ctx, accel.Deps{State: state, Log: obslog.New("accel", os.Stderr, obslog.DefaultLevel)})
	})
	sup.Register("gps", func(ctx context.Context) error {
		return gps.Run(ctx, gps.Deps{State: state, Log: obslog.New("gps", os.Stderr, obslog.DefaultLevel)})
	})
	sup.Register("flightctrl", func(ctx context.Context) error {
		return flightctrl.Run(ctx, flightctrl.Deps{State: state, Log: obslog.New("flightctrl", os.Stderr, obslog.DefaultLevel)})
	})
	sup.Register("telemetry", func(ctx context.Context) error {
		return telemetry.Run(ctx, telemetry.Deps{State: state, Log: obslog.New("telemetry", os.Stderr, obslog.DefaultLevel)})
	})
	sup.Register("watchdog", func(ctx context.Context) error {
		return watchdog.Run(ctx, watchdog.Deps{State: state, Log: obslog.New("watchdog", os.Stderr, obslog.DefaultLevel), Stall: sup.StallChan()})
	})

	ctx, stop := supervisor.WatchSignals(context.Background())
	defer stop()

	log.Info().Str("operator_ip", cfg.OperatorIP).Log("supervisor starting")

	if err := sup.Run(ctx); err != nil {
		log.Err().Err(err).Log("supervisor exited with error")
		return 1
	}
	return 0
}
