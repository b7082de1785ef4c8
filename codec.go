package ag

import "strings"

// Codec is a set of SCO audio codecs.
type Codec uint16

// Codecs.
const (
	CodecNone    Codec = 0x0000
	CodecCVSD    Codec = 0x0001 // Mandatory narrow band codec.
	CodecMSBC    Codec = 0x0002 // Wide band speech.
	CodecLC3     Codec = 0x0004 // Super wide band, LC3-SWB.
	CodecAptXSWB Codec = 0x0008 // Super wide band, vendor aptX.
)

// Codec ids used with AT+BAC and +BCS [HFP 1.8, Appendix B].
const (
	CodecIDCVSD    = 1
	CodecIDMSBC    = 2
	CodecIDLC3     = 3
	CodecIDAptXSWB = 0x0100
)

// ID returns the codec id of a single codec, or 0.
func (c Codec) ID() int {
	switch c {
	case CodecCVSD:
		return CodecIDCVSD
	case CodecMSBC:
		return CodecIDMSBC
	case CodecLC3:
		return CodecIDLC3
	case CodecAptXSWB:
		return CodecIDAptXSWB
	}
	return 0
}

// CodecFromID maps a codec id to its Codec bit, or CodecNone.
func CodecFromID(id int) Codec {
	switch id {
	case CodecIDCVSD:
		return CodecCVSD
	case CodecIDMSBC:
		return CodecMSBC
	case CodecIDLC3:
		return CodecLC3
	case CodecIDAptXSWB:
		return CodecAptXSWB
	}
	return CodecNone
}

// EffectiveCodecs returns the codecs that remain negotiable when the
// application disables the given set. CVSD can not be disabled.
func EffectiveCodecs(supported, disabled Codec) Codec {
	return (supported &^ disabled) | CodecCVSD
}

func (c Codec) String() string {
	var s []string
	for _, n := range []struct {
		c Codec
		n string
	}{{CodecCVSD, "CVSD"}, {CodecMSBC, "mSBC"}, {CodecLC3, "LC3"}, {CodecAptXSWB, "aptX-SWB"}} {
		if c&n.c != 0 {
			s = append(s, n.n)
		}
	}
	if len(s) == 0 {
		return "none"
	}
	return strings.Join(s, "|")
}

// CodecSetting is a negotiated eSCO parameter tier.
type CodecSetting uint8

// Codec settings. The aptX quality tiers reuse the vendor numbering.
const (
	CVSDSettingS4 CodecSetting = 0
	CVSDSettingS3 CodecSetting = 1
	CVSDSettingS1 CodecSetting = 2
	CVSDSettingD1 CodecSetting = 3

	MSBCSettingT2 CodecSetting = 0
	MSBCSettingT1 CodecSetting = 1

	LC3SettingT2 CodecSetting = 0
	LC3SettingT1 CodecSetting = 1

	AptXSettingQ0 CodecSetting = 0
	AptXSettingQ1 CodecSetting = 4
	AptXSettingQ2 CodecSetting = 6
	AptXSettingQ3 CodecSetting = 7
)

var degradeOrder = map[Codec][]CodecSetting{
	CodecCVSD:    {CVSDSettingS4, CVSDSettingS3, CVSDSettingS1, CVSDSettingD1},
	CodecMSBC:    {MSBCSettingT2, MSBCSettingT1},
	CodecLC3:     {LC3SettingT2, LC3SettingT1},
	CodecAptXSWB: {AptXSettingQ0, AptXSettingQ1, AptXSettingQ2, AptXSettingQ3},
}

// Degrade returns the next lower setting for codec c, and false when s is
// already the lowest tier.
func Degrade(c Codec, s CodecSetting) (CodecSetting, bool) {
	order := degradeOrder[c]
	for i, v := range order {
		if v == s && i+1 < len(order) {
			return order[i+1], true
		}
	}
	return s, false
}

// CodecSettings holds the current tier for each codec family.
type CodecSettings struct {
	CVSD CodecSetting
	MSBC CodecSetting
	LC3  CodecSetting
	AptX CodecSetting
}

// DefaultCodecSettings are the preferred tiers.
var DefaultCodecSettings = CodecSettings{
	CVSD: CVSDSettingS4,
	MSBC: MSBCSettingT2,
	LC3:  LC3SettingT2,
	AptX: AptXSettingQ0,
}

// Get returns the tier of codec c.
func (cs *CodecSettings) Get(c Codec) CodecSetting {
	switch c {
	case CodecMSBC:
		return cs.MSBC
	case CodecLC3:
		return cs.LC3
	case CodecAptXSWB:
		return cs.AptX
	}
	return cs.CVSD
}

// Set updates the tier of codec c.
func (cs *CodecSettings) Set(c Codec, s CodecSetting) {
	switch c {
	case CodecMSBC:
		cs.MSBC = s
	case CodecLC3:
		cs.LC3 = s
	case CodecAptXSWB:
		cs.AptX = s
	default:
		cs.CVSD = s
	}
}
