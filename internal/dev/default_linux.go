package dev

import (
	"io"

	"github.com/pkg/errors"

	"github.com/currantlabs/ag/gateway"
	"github.com/currantlabs/ag/linux/bluez"
	"github.com/currantlabs/ag/linux/rfcomm"
	"github.com/currantlabs/ag/linux/sco"
	"github.com/currantlabs/ag/linux/sdp"
)

// DefaultStack returns the BlueZ backed stack. BlueZ listens on the
// gateway channels and hands the connections over.
func DefaultStack() (*Stack, error) {
	rfc := rfcomm.New()
	rfc.External = true
	pub, err := bluez.Dial(rfc)
	if err != nil {
		return nil, errors.Wrap(err, "can't reach bluez")
	}
	return &Stack{
		Options: []gateway.Option{
			gateway.OptRFCOMM(rfc),
			gateway.OptSDP(sdp.NewClient()),
			gateway.OptRecords(pub),
			gateway.OptSCOLink(sco.New()),
		},
		closers: []io.Closer{rfc, pub},
	}, nil
}
