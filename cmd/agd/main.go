package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"golang.org/x/net/context"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/gateway"
	"github.com/currantlabs/ag/internal/ctl"
	"github.com/currantlabs/ag/internal/dev"
)

var logger = log.New("agd")

func main() {
	app := cli.NewApp()

	app.Name = "agd"
	app.Usage = "Hands-free audio gateway daemon"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "device", Value: "default", Usage: "transports (default / loop)"},
		cli.StringFlag{Name: "listen, l", Value: "localhost:8047", Usage: "address of the event and command server"},
		cli.StringSliceFlag{Name: "svc, s", Usage: "services to register at start (hsp / hfp)"},
		cli.UintFlag{Name: "features, f", Value: uint(ag.FeatCodec | ag.FeatReject | ag.FeatECS), Usage: "local features"},
		cli.StringFlag{Name: "name, n", Value: "Voice gateway", Usage: "service name"},
		cli.DurationFlag{Name: "ring", Value: gateway.DefaultRingInterval, Usage: "ring repeat interval"},
		cli.DurationFlag{Name: "slc-timeout", Value: gateway.DefaultSLCTimeout, Usage: "service level connection timeout"},
		cli.BoolFlag{Name: "swb", Usage: "advertise super wide band speech"},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		logger.Error("exit", "err", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	st, err := dev.NewStack(c.String("device"))
	if err != nil {
		return errors.Wrap(err, "can't create transports")
	}
	defer st.Close()
	h := newHub()
	defer h.close()

	opts := append(st.Options,
		gateway.OptRingInterval(c.Duration("ring")),
		gateway.OptSLCTimeout(c.Duration("slc-timeout")),
		gateway.OptSWBSupported(c.Bool("swb")),
	)
	g, err := gateway.New(opts...)
	if err != nil {
		return errors.Wrap(err, "can't create gateway")
	}
	defer g.Shutdown()

	s := &server{gw: g, hub: h}
	if err := g.Enable(ag.HandlerFunc(s.serveEvent)); err != nil {
		return err
	}
	if svcs := c.StringSlice("svc"); len(svcs) > 0 {
		name := c.String("name")
		if err := ctl.Exec(g, nil, ctl.Command{
			Op:       "register",
			Services: svcs,
			Features: uint32(c.Uint("features")),
			Names:    []string{name, name},
		}); err != nil {
			return errors.Wrap(err, "can't register")
		}
	}

	srv := &http.Server{Addr: c.String("listen"), Handler: s.handler()}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("serving", "addr", srv.Addr)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	select {
	case err := <-errc:
		return errors.Wrap(err, "can't serve")
	case sig := <-sigs:
		logger.Info("shutting down", "signal", sig)
	}

	g.Disable()
	g.Sync()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
