package gateway

import (
	"testing"

	"github.com/currantlabs/ag"
)

func TestParseCHLD(t *testing.T) {
	for _, tt := range []struct {
		in  string
		idx int
		ok  bool
	}{
		{"0", 0, true},
		{"1", 0, true},
		{"4", 0, true},
		{"12", 2, true},
		{"29", 9, true},
		{"5", 0, false},
		{"", 0, false},
		{"30", 0, false},
		{"10", 0, false},
		{"1x", 0, false},
	} {
		idx, ok := parseCHLD(tt.in)
		if idx != tt.idx || ok != tt.ok {
			t.Errorf("parseCHLD(%q) = %d, %v, want %d, %v", tt.in, idx, ok, tt.idx, tt.ok)
		}
	}
}

func TestParseCMER(t *testing.T) {
	for _, tt := range []struct {
		in      string
		cur     bool
		enabled bool
		ok      bool
	}{
		{"3,0,0,1", false, true, true},
		{"3,0,0,0", true, false, true},
		{"3, 0, 0, 1", false, true, true},
		{"0,0,0,1", false, false, true},
		{"3,,,1", false, true, true},
		{"3,0,0", true, true, false},
		{"x,0,0,1", false, false, false},
	} {
		enabled, ok := parseCMER(tt.in, tt.cur)
		if enabled != tt.enabled || ok != tt.ok {
			t.Errorf("parseCMER(%q, %v) = %v, %v, want %v, %v", tt.in, tt.cur, enabled, ok, tt.enabled, tt.ok)
		}
	}
}

func TestParseBIA(t *testing.T) {
	bit := func(ids ...uint) uint32 {
		var m uint32
		for _, id := range ids {
			m |= 1 << id
		}
		return m
	}
	for _, tt := range []struct {
		in   string
		mask uint32
		want uint32
		ok   bool
	}{
		{"0,0,0,0,0,0,0", 0, bit(ag.IndService, ag.IndSignal, ag.IndRoam, ag.IndBattChg), true},
		{",,,1", bit(ag.IndSignal), 0, true},
		{",,,", bit(ag.IndRoam), bit(ag.IndRoam), true},
		{"1,1,1,1,1,1,1", bit(ag.IndService, ag.IndSignal), 0, true},
		{"0,2", 0, 0, false},
	} {
		got, ok := parseBIA(tt.in, tt.mask)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("parseBIA(%q, %#x) = %#x, %v, want %#x, %v", tt.in, tt.mask, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseBAC(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want ag.Codec
	}{
		{"1", ag.CodecCVSD},
		{"1,2", ag.CodecCVSD | ag.CodecMSBC},
		{"2", ag.CodecCVSD | ag.CodecMSBC},
		{"1,2,3", ag.CodecCVSD | ag.CodecMSBC | ag.CodecLC3},
		{"1, 2, 9", ag.CodecCVSD | ag.CodecMSBC},
		{"", ag.CodecCVSD},
	} {
		if got := parseBAC(tt.in); got != tt.want {
			t.Errorf("parseBAC(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseBIND(t *testing.T) {
	l, ok := parseBIND("1, 2")
	if !ok || len(l) != 2 || l[0].id != 1 || l[1].id != 2 || !l[0].enabled {
		t.Errorf("parseBIND(\"1, 2\") = %v, %v", l, ok)
	}
	if _, ok := parseBIND("1,x"); ok {
		t.Error("parseBIND accepted a bad id")
	}
}

func TestCallerID(t *testing.T) {
	for _, tt := range []struct {
		str  string
		num  int
		want string
	}{
		{`"5551234"`, 145, `"5551234",145`},
		{`"5551234"`, 0, `"5551234",129`},
		{`"5551234"`, 200, `"5551234",129`},
		{"", 145, ""},
	} {
		if got := callerID(ag.ResultData{Str: tt.str, Num: tt.num}); got != tt.want {
			t.Errorf("callerID(%q, %d) = %q, want %q", tt.str, tt.num, got, tt.want)
		}
	}
}
