package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/internal/ctl"
)

var (
	errNoHandle = errors.New("no handle specified")
	errNoAddr   = errors.New("no address specified")
	errNotLoop  = errors.New("peer commands need --device loop")
)

func exec(cmd ctl.Command) error {
	if err := ctl.Exec(curr.gw, ag.HandlerFunc(printEvent), cmd); err != nil {
		return err
	}
	curr.gw.Sync()
	return nil
}

func handle(c *cli.Context) (uint16, error) {
	if !c.IsSet("handle") {
		return 0, errNoHandle
	}
	return uint16(c.Uint("handle")), nil
}

func cmdEnable(c *cli.Context) error {
	return exec(ctl.Command{Op: "enable"})
}

func cmdDisable(c *cli.Context) error {
	return exec(ctl.Command{Op: "disable"})
}

func cmdRegister(c *cli.Context) error {
	svcs := c.StringSlice("svc")
	if len(svcs) == 0 {
		svcs = []string{"hsp", "hfp"}
	}
	name := c.String("name")
	return exec(ctl.Command{
		Op:       "register",
		Services: svcs,
		Features: uint32(c.Uint("features")),
		Names:    []string{name, name},
	})
}

func cmdOpen(c *cli.Context) error {
	h, err := handle(c)
	if err != nil {
		return err
	}
	if c.String("addr") == "" {
		return errNoAddr
	}
	return exec(ctl.Command{Op: "open", Handle: h, Addr: c.String("addr")})
}

func cmdClose(c *cli.Context) error {
	h, err := handle(c)
	if err != nil {
		return err
	}
	return exec(ctl.Command{Op: "close", Handle: h})
}

func cmdAudio(c *cli.Context) error {
	h, err := handle(c)
	if err != nil {
		return err
	}
	if c.Bool("off") {
		return exec(ctl.Command{Op: "audio-close", Handle: h})
	}
	return exec(ctl.Command{Op: "audio-open", Handle: h, Codecs: c.StringSlice("codec")})
}

func cmdResult(c *cli.Context) error {
	h := ag.HandleAll
	if c.IsSet("handle") {
		h = uint16(c.Uint("handle"))
	}
	return exec(ctl.Command{
		Op:      "result",
		Handle:  h,
		Code:    c.String("code"),
		Str:     c.String("str"),
		Num:     c.Int("num"),
		Ind:     c.Int("ind"),
		OK:      c.String("ok"),
		ErrCode: c.Int("err"),
		State:   c.Bool("state"),
		Audio:   uint16(c.Uint("audio")),
	})
}

func cmdCodec(c *cli.Context) error {
	h, err := handle(c)
	if err != nil {
		return err
	}
	return exec(ctl.Command{Op: "codec", Handle: h, Codecs: c.StringSlice("codec")})
}

func cmdSCO(c *cli.Context) error {
	op := "sco-allowed"
	if c.Bool("offload") {
		op = "offload"
	}
	return exec(ctl.Command{Op: op, Enable: !c.Bool("off")})
}

func cmdActive(c *cli.Context) error {
	return exec(ctl.Command{Op: "active", Addr: c.String("addr")})
}

func cmdState(c *cli.Context) error {
	curr.gw.Sync()
	vs := curr.gw.Views()
	if c.IsSet("handle") {
		v, ok := curr.gw.State(uint16(c.Uint("handle")))
		if !ok {
			return errors.Errorf("handle %d not in use", c.Uint("handle"))
		}
		vs = vs[:0]
		vs = append(vs, v)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "HANDLE\tSTATE\tADDR\tSERVICE\tROLE\tSLC\tAUDIO\n")
	for _, v := range vs {
		b := ctl.FromView(v)
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\t%t\n", b.Handle, b.State, b.Addr, b.Service, b.Role, b.SLC, b.Audio)
	}
	return w.Flush()
}

func needLoop(c *cli.Context) error {
	if curr.stack == nil || curr.stack.Loop == nil {
		return errNotLoop
	}
	return nil
}

func peerAddr(c *cli.Context) (ag.Addr, error) {
	if c.String("addr") == "" {
		return ag.Addr{}, errNoAddr
	}
	return ag.ParseAddr(c.String("addr"))
}

func cmdPeerAdd(c *cli.Context) error {
	a, err := peerAddr(c)
	if err != nil {
		return err
	}
	curr.stack.Loop.AddPeer(a, uint8(c.Uint("scn")), uint16(c.Uint("features")))
	return nil
}

func cmdPeerConnect(c *cli.Context) error {
	a, err := peerAddr(c)
	if err != nil {
		return err
	}
	h, ok := curr.stack.Loop.RFCOMM.Accept(uint8(c.Uint("scn")), a)
	if !ok {
		return errors.Errorf("nothing listening on channel %d", c.Uint("scn"))
	}
	curr.gw.Sync()
	fmt.Printf("connected on port %d\n", h)
	return nil
}

func cmdPeerAT(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("no command")
	}
	p := uint16(c.Uint("port"))
	rfc := curr.stack.Loop.RFCOMM
	rfc.Receive(p, c.Args().First()+"\r")
	curr.gw.Sync()
	fmt.Printf("%q\n", rfc.Sent(p))
	return nil
}

func cmdPeerPorts(c *cli.Context) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "PORT\tSCN\tSERVER\tADDR\tCONNECTED\n")
	for _, p := range curr.stack.Loop.RFCOMM.Ports() {
		fmt.Fprintf(w, "%d\t%d\t%t\t%s\t%t\n", p.Handle, p.SCN, p.Server, p.Addr, p.Connected)
	}
	return w.Flush()
}
