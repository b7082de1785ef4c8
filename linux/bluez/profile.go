// +build linux

package bluez

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/sdp"
)

var logger = log.New("linux/bluez")

const (
	bluezService = "org.bluez"
	profileIface = "org.bluez.Profile1"
	managerIface = "org.bluez.ProfileManager1"
	managerPath  = dbus.ObjectPath("/org/bluez")
)

// An Adopter takes over an RFCOMM connection BlueZ accepted on channel scn.
type Adopter interface {
	Adopt(fd int, scn uint8, addr ag.Addr) (uint16, error)
}

// Publisher implements sdp.Publisher. Each record becomes a BlueZ profile
// whose incoming connections are handed to the Adopter.
type Publisher struct {
	mu       sync.Mutex
	bus      *dbus.Conn
	ports    Adopter
	root     dbus.ObjectPath
	next     uint32
	profiles map[uint32]*profile
}

// New returns a publisher on bus. Profile objects are exported under root.
func New(bus *dbus.Conn, root dbus.ObjectPath, ports Adopter) *Publisher {
	return &Publisher{
		bus:      bus,
		ports:    ports,
		root:     root,
		profiles: make(map[uint32]*profile),
	}
}

// Dial connects to the system bus.
func Dial(ports Adopter) (*Publisher, error) {
	bus, err := dbus.SystemBus()
	if err != nil {
		return nil, errors.Wrap(err, "can't connect to system bus")
	}
	return New(bus, "/org/currantlabs/ag", ports), nil
}

// profile implements org.bluez.Profile1.
type profile struct {
	pub    *Publisher
	handle uint32
	path   dbus.ObjectPath
	uuid   string
	scn    uint8
}

func rejected(reason string) *dbus.Error {
	return &dbus.Error{Name: "org.bluez.Error.Rejected", Body: []interface{}{reason}}
}

// Release ...
func (p *profile) Release() *dbus.Error {
	logger.Info("profile released", "path", p.path)
	return nil
}

// NewConnection ...
func (p *profile) NewConnection(dev dbus.ObjectPath, fd dbus.UnixFD, _ map[string]dbus.Variant) *dbus.Error {
	addr, err := AddrFromPath(string(dev))
	if err != nil {
		unix.Close(int(fd))
		return rejected(err.Error())
	}
	h, err := p.pub.ports.Adopt(int(fd), p.scn, addr)
	if err != nil {
		logger.Warn("connection rejected", "addr", addr, "scn", p.scn, "err", err)
		unix.Close(int(fd))
		return rejected(err.Error())
	}
	logger.Info("connection handed over", "addr", addr, "scn", p.scn, "handle", h)
	return nil
}

// RequestDisconnection ...
func (p *profile) RequestDisconnection(dev dbus.ObjectPath) *dbus.Error {
	logger.Debug("disconnection requested", "device", dev)
	return nil
}

// AddRecord implements sdp.Publisher.
func (pub *Publisher) AddRecord(r *sdp.Record) (uint32, error) {
	classes := r.ServiceClasses()
	if len(classes) == 0 {
		return 0, errors.New("record without service class")
	}
	scn, ok := r.ProtocolParam(sdp.UUIDProtocolRFCOMM)
	if !ok {
		return 0, errors.New("record without RFCOMM channel")
	}
	rec, err := RecordXML(r)
	if err != nil {
		return 0, err
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	pub.next++
	p := &profile{
		pub:    pub,
		handle: 0x10000 + pub.next,
		path:   dbus.ObjectPath(fmt.Sprintf("%s/profile%d", pub.root, pub.next)),
		uuid:   classes[0].String(),
		scn:    uint8(scn),
	}
	if err := pub.bus.Export(p, p.path, profileIface); err != nil {
		return 0, errors.Wrap(err, "can't export profile")
	}
	opts := map[string]dbus.Variant{
		"ServiceRecord": dbus.MakeVariant(rec),
		"Role":          dbus.MakeVariant("server"),
		"Channel":       dbus.MakeVariant(uint16(scn)),
	}
	obj := pub.bus.Object(bluezService, managerPath)
	if err := obj.Call(managerIface+".RegisterProfile", 0, p.path, p.uuid, opts).Err; err != nil {
		pub.bus.Export(nil, p.path, profileIface)
		return 0, errors.Wrapf(err, "can't register profile %s", classes[0].Name())
	}
	pub.profiles[p.handle] = p
	logger.Info("profile registered", "uuid", p.uuid, "scn", scn, "path", p.path)
	return p.handle, nil
}

// DeleteRecord implements sdp.Publisher.
func (pub *Publisher) DeleteRecord(h uint32) error {
	pub.mu.Lock()
	p, ok := pub.profiles[h]
	delete(pub.profiles, h)
	pub.mu.Unlock()
	if !ok {
		return errors.Errorf("unknown record 0x%08x", h)
	}
	err := pub.bus.Object(bluezService, managerPath).Call(managerIface+".UnregisterProfile", 0, p.path).Err
	pub.bus.Export(nil, p.path, profileIface)
	return errors.Wrap(err, "can't unregister profile")
}

// Close unregisters every profile.
func (pub *Publisher) Close() error {
	pub.mu.Lock()
	var hs []uint32
	for h := range pub.profiles {
		hs = append(hs, h)
	}
	pub.mu.Unlock()
	for _, h := range hs {
		if err := pub.DeleteRecord(h); err != nil {
			logger.Warn("can't delete record", "record", h, "err", err)
		}
	}
	return nil
}
