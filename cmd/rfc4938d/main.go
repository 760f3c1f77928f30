// Command rfc4938d is the RFC 4938 PPPoE credit-flow daemon: it reads
// a flat KEY VALUE configuration file, binds the configured uplink
// interface, and supervises one Session Worker per neighbor, §5.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/adjacentlink/rfc4938/config"
	"github.com/adjacentlink/rfc4938/ctlmsg"
	"github.com/adjacentlink/rfc4938/datapath"
	"github.com/adjacentlink/rfc4938/metrics"
	"github.com/adjacentlink/rfc4938/neighbor"
)

func main() {
	configPath := flag.String("config", "/etc/rfc4938/rfc4938.conf", "path to the rfc4938 configuration file")
	metricsAddr := flag.String("metrics-addr", ":9438", "Prometheus /metrics listen address")
	flag.Parse()

	if err := run(*configPath, *metricsAddr); err != nil {
		fmt.Fprintln(os.Stderr, "rfc4938d:", err)
		os.Exit(1)
	}
}

func run(configPath, metricsAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().
		Level(debugLevelToZerolog(cfg.DebugLevel))

	iface, err := net.InterfaceByName(cfg.Iface)
	if err != nil {
		return fmt.Errorf("lookup interface %s: %w", cfg.Iface, err)
	}

	dev, err := datapath.Open(datapath.Mode(cfg.VIFMode), cfg.Iface)
	if err != nil {
		return fmt.Errorf("open datapath on %s: %w", cfg.Iface, err)
	}
	defer dev.Close()

	sup := neighbor.NewSupervisor(cfg, dev, iface.HardwareAddr, logger)
	collector := metrics.NewCollector()
	prometheus.MustRegister(collector)
	_ = metrics.NewAggregator(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)

	ctl, err := newCtlListener(cfg.CtlPort, sup, logger)
	if err != nil {
		return fmt.Errorf("control listener: %w", err)
	}
	defer ctl.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sup.Run(gctx) })
	g.Go(func() error { return ctl.Run(gctx) })
	g.Go(func() error { return serveMetrics(gctx, metricsAddr) })
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-reload:
				newCfg, err := config.Load(configPath)
				if err != nil {
					logger.Warn().Err(err).Msg("SIGHUP: failed to reload configuration")
					continue
				}
				sup.Reload(newCfg)
			}
		}
	})

	logger.Info().Str("iface", cfg.Iface).Uint32("node_id", cfg.NodeID).Msg("rfc4938d started")
	if err := g.Wait(); err != nil && gctx.Err() == nil {
		return err
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func debugLevelToZerolog(level int) zerolog.Level {
	switch level {
	case 0:
		return zerolog.WarnLevel
	case 1:
		return zerolog.InfoLevel
	case 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// ctlListener owns the UDP socket CLI commands arrive on and decodes
// them into Supervisor calls, §6.2/§6.3.
type ctlListener struct {
	conn *net.UDPConn
	sup  *neighbor.Supervisor
	log  zerolog.Logger
}

func newCtlListener(port uint16, sup *neighbor.Supervisor, logger zerolog.Logger) (*ctlListener, error) {
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: int(port)}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	return &ctlListener{conn: conn, sup: sup, log: logger.With().Str("component", "ctl").Logger()}, nil
}

func (c *ctlListener) Close() error { return c.conn.Close() }

func (c *ctlListener) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()

	buf := make([]byte, 4096)
	for {
		n, src, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		c.handle(buf[:n], src)
	}
}

func (c *ctlListener) handle(buf []byte, src *net.UDPAddr) {
	hdr, body, err := ctlmsg.DecodeHeader(buf)
	if err != nil {
		c.log.Debug().Err(err).Msg("dropping malformed control message")
		return
	}
	switch hdr.Cmd {
	case ctlmsg.CmdCLISessionInitiate:
		m, err := ctlmsg.DecodeCLISessionInitiate(body)
		if err != nil {
			c.log.Warn().Err(err).Msg("bad CLI_SESSION_INITIATE")
			return
		}
		if err := c.sup.StartNeighbor(context.Background(), m.NeighborID, nil); err != nil {
			c.log.Warn().Err(err).Uint32("neighbor_id", m.NeighborID).Msg("initiate failed")
		}
	case ctlmsg.CmdCLISessionTerminate:
		m, err := ctlmsg.DecodeCLISessionTerminate(body)
		if err != nil {
			c.log.Warn().Err(err).Msg("bad CLI_SESSION_TERMINATE")
			return
		}
		if err := c.sup.StopNeighbor(m.NeighborID); err != nil {
			c.log.Warn().Err(err).Uint32("neighbor_id", m.NeighborID).Msg("terminate failed")
		}
	case ctlmsg.CmdCLISessionShow:
		resp := ctlmsg.CLIShowResponse{Text: c.renderShow()}
		c.conn.WriteToUDP(resp.Encode(hdr.Seq), src)
	default:
		c.log.Debug().Str("cmd", hdr.Cmd.String()).Msg("unhandled control message")
	}
}

func (c *ctlListener) renderShow() string {
	var out string
	for _, n := range c.sup.Table().All() {
		out += fmt.Sprintf("neighbor %d state=%s session=%d last_seqnum=%d missed_seqnum=%d\n",
			n.ID, n.State, n.SessionID, n.LastSeqNum, n.MissedSeqNum)
	}
	if out == "" {
		out = "no neighbors\n"
	}
	return out
}
