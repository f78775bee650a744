// Command operator is the console application: it sends mode commands to
// the flight controller over UDP and prints telemetry frames received
// over TCP.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	"dronesim/internal/netcmd"
	"dronesim/internal/obslog"
	"dronesim/internal/shared"
	"dronesim/internal/supervisor"
	"dronesim/internal/telemetryproto"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) != 5 {
		fmt.Fprintf(os.Stderr, "Usage: %s <operator_ip> <telemetry_unit_port> <drone_ip> <flight_ctrl_port>\n", args[0])
		return 1
	}
	operatorIP, telemetryPort, droneIP, flightCtrlPort := args[1], args[2], args[3], args[4]

	log := obslog.New("operator", os.Stderr, obslog.DefaultLevel)

	listener, err := net.Listen("tcp", net.JoinHostPort(operatorIP, telemetryPort))
	if err != nil {
		log.Err().Err(err).Log("telemetry listen failed")
		return 1
	}
	defer listener.Close()

	udpAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(droneIP, flightCtrlPort))
	if err != nil {
		log.Err().Err(err).Log("bad flight controller address")
		return 1
	}
	udpConn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		log.Err().Err(err).Log("udp socket setup failed")
		return 1
	}
	defer udpConn.Close()

	ctx, stop := supervisor.WatchSignals(context.Background())
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		acceptTelemetry(ctx, listener, log)
	}()
	go func() {
		defer wg.Done()
		readCommands(ctx, udpConn, log)
	}()

	<-ctx.Done()
	log.Info().Log("shutting down cleanly")
	wg.Wait()
	return 0
}

// acceptTelemetry accepts at most one client at a time and prints every
// frame it reads between the operator's display markers.
func acceptTelemetry(ctx context.Context, listener net.Listener, log *obslog.Logger) {
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Err().Err(err).Log("telemetry accept failed")
			continue
		}
		log.Info().Log("telemetry client connected")
		handleTelemetryConn(ctx, conn, log)
	}
}

func handleTelemetryConn(ctx context.Context, conn net.Conn, log *obslog.Logger) {
	defer conn.Close()
	buf := make([]byte, 1024)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := conn.Read(buf)
		if err != nil {
			log.Info().Log("telemetry disconnected")
			return
		}
		fmt.Print(telemetryproto.Print(buf[:n]))
	}
}

// readCommands reads mode commands from stdin, case-insensitive, and
// forwards each recognized one as a UDP datagram.
func readCommands(ctx context.Context, conn *net.UDPConn, log *obslog.Logger) {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		mode, ok := parseCommand(line)
		if !ok {
			fmt.Printf("Invalid command: %s\n", line)
			fmt.Println("Valid: fly, samplegps, land, idle, charge, abort")
			continue
		}
		if _, err := conn.Write(netcmd.Encode(mode)); err != nil {
			log.Err().Err(err).Log("sendto failed")
			continue
		}
		fmt.Printf("Sent command %q via UDP.\n", line)
	}
}

func parseCommand(s string) (shared.Mode, bool) {
	switch strings.ToLower(s) {
	case "samplegps":
		return shared.SampleGPS, true
	case "fly":
		return shared.Fly, true
	case "land":
		return shared.Land, true
	case "idle":
		return shared.Idle, true
	case "charge":
		return shared.Charge, true
	case "abort":
		return shared.Abort, true
	default:
		return 0, false
	}
}
