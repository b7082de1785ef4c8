package gateway

import (
	"time"

	"github.com/pkg/errors"

	"github.com/currantlabs/ag/alarm"
	"github.com/currantlabs/ag/rfcomm"
	"github.com/currantlabs/ag/sco"
	"github.com/currantlabs/ag/sdp"
)

// An Option is a configuration function, which configures the gateway.
type Option func(*Gateway) error

// OptRFCOMM sets the RFCOMM transport.
func OptRFCOMM(t rfcomm.Transport) Option {
	return func(g *Gateway) error {
		g.rfcT = t
		return nil
	}
}

// OptSDP sets the transport used to discover peer records.
func OptSDP(s sdp.Searcher) Option {
	return func(g *Gateway) error {
		g.searcher = s
		return nil
	}
}

// OptRecords sets the transport used to publish local records.
func OptRecords(p sdp.Publisher) Option {
	return func(g *Gateway) error {
		g.publisher = p
		return nil
	}
}

// OptSCOLink sets the audio link layer.
func OptSCOLink(l sco.Link) Option {
	return func(g *Gateway) error {
		g.link = l
		return nil
	}
}

// OptClock sets the clock alarms are scheduled on.
func OptClock(c alarm.Clock) Option {
	return func(g *Gateway) error {
		g.clock = c
		return nil
	}
}

// OptRingInterval sets the RING repeat interval.
func OptRingInterval(d time.Duration) Option {
	return func(g *Gateway) error {
		if d <= 0 {
			return errors.Errorf("invalid ring interval %s", d)
		}
		g.ringInterval = d
		return nil
	}
}

// OptSLCTimeout sets how long a hands-free unit has to complete the
// service level connection after RFCOMM opens.
func OptSLCTimeout(d time.Duration) Option {
	return func(g *Gateway) error {
		if d <= 0 {
			return errors.Errorf("invalid SLC timeout %s", d)
		}
		g.slcTimeout = d
		return nil
	}
}

// OptCollisionDelay sets how long to wait before retrying an open that
// collided with an incoming connection.
func OptCollisionDelay(d time.Duration) Option {
	return func(g *Gateway) error {
		if d <= 0 {
			return errors.Errorf("invalid collision delay %s", d)
		}
		g.collisionDelay = d
		return nil
	}
}

// OptCodecTimeout sets the codec negotiation timeout.
func OptCodecTimeout(d time.Duration) Option {
	return func(g *Gateway) error {
		if d <= 0 {
			return errors.Errorf("invalid codec timeout %s", d)
		}
		g.codecTimeout = d
		return nil
	}
}

// OptMaxATLen sets the longest AT command line accepted.
func OptMaxATLen(n int) Option {
	return func(g *Gateway) error {
		if n < 16 {
			return errors.Errorf("AT line length %d too short", n)
		}
		g.maxATLen = n
		return nil
	}
}

// OptBRSFWidening accepts AT+BRSF values wider than 16 bits, masking the
// reserved bits.
func OptBRSFWidening(enable bool) Option {
	return func(g *Gateway) error {
		g.widenBRSF = enable
		return nil
	}
}

// OptSWBSupported tells the gateway whether the controller can carry super
// wide band speech.
func OptSWBSupported(supported bool) Option {
	return func(g *Gateway) error {
		g.swb = supported
		return nil
	}
}
