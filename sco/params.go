package sco

import (
	"fmt"

	"github.com/currantlabs/ag"
)

// Packet type bits of the HCI (Enhanced) Setup Synchronous Connection
// command [Vol 4, Part E, 7.1.26]. The EDR bits are "may not be used".
const (
	PktHV1    uint16 = 0x0001
	PktHV2    uint16 = 0x0002
	PktHV3    uint16 = 0x0004
	PktEV3    uint16 = 0x0008
	PktEV4    uint16 = 0x0010
	PktEV5    uint16 = 0x0020
	PktNo2EV3 uint16 = 0x0040
	PktNo3EV3 uint16 = 0x0080
	PktNo2EV5 uint16 = 0x0100
	PktNo3EV5 uint16 = 0x0200

	pktNoEDR = PktNo2EV3 | PktNo3EV3 | PktNo2EV5 | PktNo3EV5
)

// Voice settings.
const (
	VoiceCVSD        uint16 = 0x0060 // 16-bit linear PCM, CVSD air mode
	VoiceTransparent uint16 = 0x0003 // transparent air mode for wide band codecs
)

// Params describe a synchronous connection.
type Params struct {
	Codec   ag.Codec
	Setting ag.CodecSetting

	ESCO        bool
	Bandwidth   uint32 // bytes per second, each direction
	MaxLatency  uint16 // ms, 0xFFFF don't care
	Voice       uint16
	Retransmit  uint8 // 0 none, 1 power, 2 quality, 0xFF don't care
	PacketTypes uint16
	Offload     bool // audio routed over the controller data path
}

func (p Params) String() string {
	return fmt.Sprintf("%s/%d esco=%v latency=%d retx=%d pkt=0x%04x", p.Codec, p.Setting, p.ESCO, p.MaxLatency, p.Retransmit, p.PacketTypes)
}

// Transparent reports whether the air mode is transparent.
func (p Params) Transparent() bool { return p.Voice == VoiceTransparent }

type paramKey struct {
	c ag.Codec
	s ag.CodecSetting
}

// eSCO parameter sets [HFP 1.8, 5.7].
var paramTable = map[paramKey]Params{
	{ag.CodecCVSD, ag.CVSDSettingS4}:    {MaxLatency: 12, Retransmit: 2, PacketTypes: PktEV3 | PktNo3EV3 | PktNo2EV5 | PktNo3EV5},
	{ag.CodecCVSD, ag.CVSDSettingS3}:    {MaxLatency: 10, Retransmit: 1, PacketTypes: PktEV3 | PktNo3EV3 | PktNo2EV5 | PktNo3EV5},
	{ag.CodecCVSD, ag.CVSDSettingS1}:    {MaxLatency: 7, Retransmit: 1, PacketTypes: PktEV3 | PktNo3EV3 | PktNo2EV5 | PktNo3EV5},
	{ag.CodecCVSD, ag.CVSDSettingD1}:    {MaxLatency: 0xFFFF, Retransmit: 0xFF, PacketTypes: PktHV1 | PktHV3 | pktNoEDR},
	{ag.CodecMSBC, ag.MSBCSettingT2}:    {MaxLatency: 13, Retransmit: 2, PacketTypes: PktEV3 | PktNo3EV3 | PktNo2EV5 | PktNo3EV5},
	{ag.CodecMSBC, ag.MSBCSettingT1}:    {MaxLatency: 8, Retransmit: 2, PacketTypes: PktEV3 | pktNoEDR},
	{ag.CodecLC3, ag.LC3SettingT2}:      {MaxLatency: 13, Retransmit: 2, PacketTypes: PktEV3 | PktNo3EV3 | PktNo2EV5 | PktNo3EV5},
	{ag.CodecLC3, ag.LC3SettingT1}:      {MaxLatency: 8, Retransmit: 2, PacketTypes: PktEV3 | pktNoEDR},
	{ag.CodecAptXSWB, ag.AptXSettingQ0}: {MaxLatency: 14, Retransmit: 2, PacketTypes: PktEV3 | PktNo2EV3 | PktNo3EV3 | PktNo3EV5},
	{ag.CodecAptXSWB, ag.AptXSettingQ1}: {MaxLatency: 14, Retransmit: 1, PacketTypes: PktEV3 | PktNo2EV3 | PktNo3EV3 | PktNo3EV5},
	{ag.CodecAptXSWB, ag.AptXSettingQ2}: {MaxLatency: 13, Retransmit: 2, PacketTypes: PktEV3 | PktNo3EV3 | PktNo2EV5 | PktNo3EV5},
	{ag.CodecAptXSWB, ag.AptXSettingQ3}: {MaxLatency: 13, Retransmit: 1, PacketTypes: PktEV3 | PktNo3EV3 | PktNo2EV5 | PktNo3EV5},
}

// ParamsFor returns the connection parameters of codec c at setting s.
// Without eSCO only CVSD over SCO is possible.
func ParamsFor(c ag.Codec, s ag.CodecSetting, esco bool) Params {
	if !esco {
		c, s = ag.CodecCVSD, ag.CVSDSettingD1
	}
	p, ok := paramTable[paramKey{c, s}]
	if !ok {
		c, s = ag.CodecCVSD, ag.CVSDSettingS4
		p = paramTable[paramKey{c, s}]
	}
	p.Codec, p.Setting = c, s
	p.ESCO = esco
	p.Bandwidth = 8000
	p.Voice = VoiceCVSD
	if c != ag.CodecCVSD {
		p.Voice = VoiceTransparent
	}
	return p
}
