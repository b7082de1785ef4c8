// Package bluez publishes the gateway records through the BlueZ profile
// manager and forwards the connections BlueZ accepts for them.
package bluez

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/sdp"
)

// node is an element of the BlueZ service record XML format.
type node struct {
	XMLName xml.Name
	ID      string `xml:"id,attr,omitempty"`
	Value   string `xml:"value,attr,omitempty"`
	Nodes   []node
}

// RecordXML renders r in the XML form accepted by the ServiceRecord option
// of RegisterProfile.
func RecordXML(r *sdp.Record) (string, error) {
	root := node{XMLName: xml.Name{Local: "record"}}
	for _, a := range r.Attrs {
		if a.ID == sdp.AttrServiceRecordHandle {
			continue
		}
		v, err := elementNode(a.Value)
		if err != nil {
			return "", errors.Wrapf(err, "attribute 0x%04x", a.ID)
		}
		root.Nodes = append(root.Nodes, node{
			XMLName: xml.Name{Local: "attribute"},
			ID:      fmt.Sprintf("0x%04x", a.ID),
			Nodes:   []node{v},
		})
	}
	b, err := xml.MarshalIndent(root, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "can't render record")
	}
	return xml.Header + string(b), nil
}

func elementNode(e sdp.Element) (node, error) {
	n := func(name, value string) node {
		return node{XMLName: xml.Name{Local: name}, Value: value}
	}
	switch e.Type {
	case sdp.TypeNil:
		return n("nil", ""), nil
	case sdp.TypeUint:
		return n(fmt.Sprintf("uint%d", 8*e.Size), fmt.Sprintf("0x%0*x", 2*e.Size, e.Uint)), nil
	case sdp.TypeInt:
		return n(fmt.Sprintf("int%d", 8*e.Size), fmt.Sprintf("%d", e.Int)), nil
	case sdp.TypeUUID:
		switch len(e.UUID) {
		case 2, 4:
			return n("uuid", "0x"+fmt.Sprintf("%x", e.UUID)), nil
		case 16:
			u, err := uuid.FromBytes(e.UUID)
			if err != nil {
				return node{}, err
			}
			return n("uuid", u.String()), nil
		}
		return node{}, errors.Errorf("uuid of %d bytes", len(e.UUID))
	case sdp.TypeText:
		return n("text", e.Text), nil
	case sdp.TypeURL:
		return n("url", e.Text), nil
	case sdp.TypeBool:
		return n("boolean", fmt.Sprintf("%t", e.Bool)), nil
	case sdp.TypeSeq, sdp.TypeAlt:
		name := "sequence"
		if e.Type == sdp.TypeAlt {
			name = "alternate"
		}
		s := node{XMLName: xml.Name{Local: name}}
		for _, c := range e.Seq {
			cn, err := elementNode(c)
			if err != nil {
				return node{}, err
			}
			s.Nodes = append(s.Nodes, cn)
		}
		return s, nil
	}
	return node{}, errors.Errorf("element type %s", e.Type)
}

// AddrFromPath returns the address of a BlueZ device object path such as
// /org/bluez/hci0/dev_00_11_22_33_44_55.
func AddrFromPath(path string) (ag.Addr, error) {
	i := strings.LastIndex(path, "/dev_")
	if i < 0 {
		return ag.Addr{}, errors.Errorf("not a device path: %s", path)
	}
	return ag.ParseAddr(strings.Replace(path[i+len("/dev_"):], "_", ":", -1))
}
