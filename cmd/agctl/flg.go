package main

import "github.com/urfave/cli"

var (
	flgHandle = cli.UintFlag{Name: "handle", Usage: "Control block handle"}
	flgAddr   = cli.StringFlag{Name: "addr, a", Usage: "Address of remote device"}
	flgSvc    = cli.StringSliceFlag{Name: "svc, s", Usage: "Service to register (hsp / hfp)"}
	flgCodec  = cli.StringSliceFlag{Name: "codec, c", Usage: "Codec (cvsd / msbc / lc3 / aptx)"}
	flgOff    = cli.BoolFlag{Name: "off", Usage: "Turn off instead of on"}
)
