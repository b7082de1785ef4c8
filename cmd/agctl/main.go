package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/gateway"
	"github.com/currantlabs/ag/internal/ctl"
	"github.com/currantlabs/ag/internal/dev"
)

var curr struct {
	stack *dev.Stack
	gw    *gateway.Gateway
}

func main() {
	app := cli.NewApp()

	app.Name = "agctl"
	app.Usage = "A CLI tool for the hands-free audio gateway"
	app.Version = "0.0.1"
	app.Action = cli.ShowAppHelp
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "device",
			Value: "default",
			Usage: "transports (default / loop)",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:   "enable",
			Usage:  "Enable the gateway",
			Action: cmdEnable,
		},
		{
			Name:   "disable",
			Usage:  "Deregister everything and disable the gateway",
			Action: cmdDisable,
		},
		{
			Name:    "register",
			Aliases: []string{"reg"},
			Usage:   "Register services",
			Action:  cmdRegister,
			Flags: []cli.Flag{
				flgSvc,
				cli.UintFlag{Name: "features, f", Value: uint(ag.FeatCodec | ag.FeatReject | ag.FeatECS), Usage: "Local features"},
				cli.StringFlag{Name: "name, n", Value: "Voice gateway", Usage: "Service name"},
			},
		},
		{
			Name:    "open",
			Aliases: []string{"o"},
			Usage:   "Connect to a hands-free unit",
			Action:  cmdOpen,
			Flags:   []cli.Flag{flgHandle, flgAddr},
		},
		{
			Name:    "close",
			Aliases: []string{"c"},
			Usage:   "Close the connection",
			Action:  cmdClose,
			Flags:   []cli.Flag{flgHandle},
		},
		{
			Name:    "audio",
			Aliases: []string{"au"},
			Usage:   "Open or close audio",
			Action:  cmdAudio,
			Flags:   []cli.Flag{flgHandle, flgOff, flgCodec},
		},
		{
			Name:    "result",
			Aliases: []string{"r"},
			Usage:   "Send a result to the peer",
			Action:  cmdResult,
			Flags: []cli.Flag{
				flgHandle,
				cli.StringFlag{Name: "code", Usage: "Result code, e.g. in-call, cind, ind"},
				cli.StringFlag{Name: "str", Usage: "String argument"},
				cli.IntFlag{Name: "num", Usage: "Numeric argument or indicator value"},
				cli.IntFlag{Name: "ind", Usage: "Indicator position"},
				cli.StringFlag{Name: "ok", Usage: "Terminate with (done / error)"},
				cli.IntFlag{Name: "err", Usage: "Extended error code"},
				cli.BoolFlag{Name: "state", Usage: "State argument"},
				cli.UintFlag{Name: "audio", Usage: "Handle whose audio follows the call"},
			},
		},
		{
			Name:   "codec",
			Usage:  "Select the codec of the next audio connection",
			Action: cmdCodec,
			Flags:  []cli.Flag{flgHandle, flgCodec},
		},
		{
			Name:   "sco",
			Usage:  "Allow or refuse audio",
			Action: cmdSCO,
			Flags:  []cli.Flag{flgOff, cli.BoolFlag{Name: "offload", Usage: "Switch offload instead"}},
		},
		{
			Name:   "active",
			Usage:  "Restrict audio to one device",
			Action: cmdActive,
			Flags:  []cli.Flag{flgAddr},
		},
		{
			Name:    "state",
			Aliases: []string{"st"},
			Usage:   "Show control blocks",
			Action:  cmdState,
			Flags:   []cli.Flag{flgHandle},
		},
		{
			Name:   "peer",
			Usage:  "Act as the remote device (loop device only)",
			Before: needLoop,
			Subcommands: []cli.Command{
				{
					Name:   "add",
					Usage:  "Make a hands-free unit discoverable",
					Action: cmdPeerAdd,
					Flags: []cli.Flag{
						flgAddr,
						cli.UintFlag{Name: "scn", Value: 5, Usage: "RFCOMM channel"},
						cli.UintFlag{Name: "features, f", Value: 0x0004, Usage: "SDP supported features"},
					},
				},
				{
					Name:   "connect",
					Usage:  "Connect to the gateway",
					Action: cmdPeerConnect,
					Flags:  []cli.Flag{flgAddr, cli.UintFlag{Name: "scn", Usage: "Gateway channel"}},
				},
				{
					Name:      "at",
					Usage:     "Send an AT command on a port",
					ArgsUsage: "<command>",
					Action:    cmdPeerAT,
					Flags:     []cli.Flag{cli.UintFlag{Name: "port, p", Usage: "Port handle"}},
				},
				{
					Name:   "ports",
					Usage:  "List ports",
					Action: cmdPeerPorts,
				},
			},
		},
		{
			Name:    "shell",
			Aliases: []string{"sh"},
			Usage:   "Entering interactive mode",
			Action:  func(c *cli.Context) { shell(app) },
		},
	}

	app.Before = setup
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
	}
	if curr.gw != nil {
		curr.gw.Shutdown()
		curr.stack.Close()
	}
}

func setup(c *cli.Context) error {
	if curr.gw != nil {
		return nil
	}
	fmt.Printf("Initializing gateway ...\n")
	st, err := dev.NewStack(c.String("device"))
	if err != nil {
		return errors.Wrap(err, "can't create transports")
	}
	g, err := gateway.New(st.Options...)
	if err != nil {
		st.Close()
		return errors.Wrap(err, "can't create gateway")
	}
	curr.stack, curr.gw = st, g
	return nil
}

func printEvent(e ag.Event) {
	m := ctl.FromEvent(e)
	s := fmt.Sprintf("[%d] %s", m.Handle, m.Event)
	if m.Status != "" {
		s += " status=" + m.Status
	}
	if m.Addr != "" && m.Addr != (ag.Addr{}).String() {
		s += " addr=" + m.Addr
	}
	if m.Service != "" {
		s += " service=" + m.Service
	}
	if m.Codecs != "" {
		s += " codecs=" + m.Codecs
	}
	if m.Str != "" {
		s += fmt.Sprintf(" str=%q", m.Str)
	}
	if m.Num != 0 {
		s += fmt.Sprintf(" num=%d", m.Num)
	}
	fmt.Printf("\n%s\n", s)
}

func shell(app *cli.App) {
	reader := bufio.NewReader(os.Stdin)
	sigs := make(chan os.Signal, 1)
	go func() {
		for range sigs {
			fmt.Printf("\n(type quit or q to exit)\n")
		}
	}()
	defer close(sigs)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	for {
		fmt.Print("agctl > ")
		text, err := reader.ReadString('\n')
		text = strings.TrimSpace(text)
		if err != nil && text == "" {
			break
		}
		if text == "" {
			continue
		}
		if text == "quit" || text == "q" {
			break
		}
		if err := app.Run(append([]string{os.Args[0]}, strings.Fields(text)...)); err != nil {
			fmt.Printf("%s\n", err)
		}
	}
	signal.Stop(sigs)
}
