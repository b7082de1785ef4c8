package at

import (
	"fmt"
	"reflect"
	"testing"
)

const (
	idCIND = iota
	idBRSF
	idVGS
	idD
	idCHLD
	idB
	idBCS
)

var testCmds = []Command{
	{Name: "+CIND", ID: idCIND, Args: ArgReadTest, Format: FmtStr},
	{Name: "+BRSF", ID: idBRSF, Args: ArgSet, Format: FmtInt, Min: 0, Max: MaxInt, Wide: true},
	{Name: "+VGS", ID: idVGS, Args: ArgSet, Format: FmtInt, Min: 0, Max: 15},
	{Name: "D", ID: idD, Args: ArgNone | ArgFree, Format: FmtStr},
	{Name: "+CHLD", ID: idCHLD, Args: ArgSetTest, Format: FmtStr},
	{Name: "+B", ID: idB, Args: ArgFree, Format: FmtStr},
	{Name: "+BCS", ID: idBCS, Args: ArgSet, Format: FmtInt, Min: 0, Max: 4},
}

type rec struct {
	out []string
}

func (r *rec) cmd(id int, t ArgType, arg string, num int) {
	r.out = append(r.out, fmt.Sprintf("cmd %d %s %q %d", id, t, arg, num))
}

func (r *rec) err(unknown bool, buf string) {
	r.out = append(r.out, fmt.Sprintf("err %v %q", unknown, buf))
}

func newTestParser(r *rec) *Parser {
	return NewParser(testCmds, 256, r.cmd, r.err)
}

func parse(in string) []string {
	r := &rec{}
	p := newTestParser(r)
	p.Parse([]byte(in))
	return r.out
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"keepalive", "AT\r\n", nil},
		{"short", "A\r", nil},
		{"not at", "XY+CIND?\r", nil},
		{"read", "AT+CIND?\r", []string{`cmd 0 read "" 0`}},
		{"test", "AT+CIND=?\r", []string{`cmd 0 test "" 0`}},
		{"lower case", "at+cind?\r", []string{`cmd 0 read "" 0`}},
		{"set int", "AT+VGS=7\r", []string{`cmd 2 set "7" 7`}},
		{"free", "ATD1234;\r", []string{`cmd 3 free "1234;" 0`}},
		{"none", "ATD\r", []string{`cmd 3 none "" 0`}},
		{"longest prefix", "AT+BCS=1\r", []string{`cmd 6 set "1" 1`}},
		{"shorter prefix", "AT+BXYZ\r", []string{`cmd 5 free "XYZ" 0`}},
		{"unknown", "AT+FOO=1\r", []string{`err true "+FOO=1"`}},
		{"arg type not allowed", "AT+CIND\r", []string{`err false ""`}},
		{"out of range", "AT+VGS=16\r", []string{`err false ""`}},
		{"not a number", "AT+VGS=x\r", []string{`err false ""`}},
		{"bare equals", "AT+VGS=\r", []string{`err false ""`}},
		{"leading nul", "\x00\x00AT+CIND?\r", []string{`cmd 0 read "" 0`}},
		{"two lines", "AT+CIND?\r\nAT+CHLD=?\r\n", []string{`cmd 0 read "" 0`, `cmd 4 test "" 0`}},
		{"abort", "AT+CIND=1\x1A", []string{`err true "AT+CIND=1"`}},
		{"escape then command", "AT+C\x1BAT+CIND?\r", []string{`err true "AT+C"`, `cmd 0 read "" 0`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parse(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	for v := 0; v <= 6; v++ {
		got := parse(fmt.Sprintf("AT+BCS=%d\r", v))
		if v <= 4 {
			if want := fmt.Sprintf(`cmd 6 set "%d" %d`, v, v); len(got) != 1 || got[0] != want {
				t.Errorf("BCS=%d: got %q", v, got)
			}
			continue
		}
		if len(got) != 1 || got[0] != `err false ""` {
			t.Errorf("BCS=%d: got %q, want error", v, got)
		}
	}
}

func TestParseChunking(t *testing.T) {
	in := "\x00AT+BRSF=1023\rAT\r\nAT+CIND=?\r\nat+vgs=15\rATD555;\rAT+X\x1AAT+CHLD=1\r"
	want := parse(in)
	if len(want) != 6 {
		t.Fatalf("unexpected reference output %q", want)
	}
	for size := 1; size <= len(in); size++ {
		r := &rec{}
		p := newTestParser(r)
		for i := 0; i < len(in); i += size {
			end := i + size
			if end > len(in) {
				end = len(in)
			}
			p.Parse([]byte(in[i:end]))
		}
		if !reflect.DeepEqual(r.out, want) {
			t.Errorf("chunk size %d: got %q, want %q", size, r.out, want)
		}
	}
}

func TestParseOverflow(t *testing.T) {
	r := &rec{}
	p := NewParser(testCmds, 16, r.cmd, r.err)
	p.Parse([]byte("AT+CIND?AAAAAAAAAAAAAAAAAAAAAA\rAT+CIND?\r"))
	want := []string{`cmd 0 read "" 0`}
	if !reflect.DeepEqual(r.out, want) {
		t.Errorf("got %q, want %q", r.out, want)
	}
	if p.Pending() != 0 {
		t.Errorf("Pending() = %d", p.Pending())
	}
}

func TestParseWide(t *testing.T) {
	tests := []struct {
		arg   string
		widen bool
		want  string
	}{
		{"1023", false, `cmd 1 set "1023" 1023`},
		{"4095", true, `cmd 1 set "4095" 4095`},
		{"65535", false, `err false ""`},
		{"65535", true, `cmd 1 set "65535" 4095`},
		{"4294967295", true, `cmd 1 set "4294967295" 4095`},
		{"4294967296", true, `err false ""`},
		{"-1", true, `err false ""`},
	}
	for _, tt := range tests {
		r := &rec{}
		p := newTestParser(r)
		p.Widen = tt.widen
		p.Parse([]byte("AT+BRSF=" + tt.arg + "\r"))
		if len(r.out) != 1 || r.out[0] != tt.want {
			t.Errorf("BRSF=%s widen=%v: got %q, want %q", tt.arg, tt.widen, r.out, tt.want)
		}
	}
}

func TestParseWideOnlyMarkedCommand(t *testing.T) {
	r := &rec{}
	p := newTestParser(r)
	p.Widen = true
	p.Parse([]byte("AT+VGS=65535\r"))
	if len(r.out) != 1 || r.out[0] != `err false ""` {
		t.Errorf("got %q", r.out)
	}
}

func TestReadTestHaveNoArgument(t *testing.T) {
	var got []string
	p := NewParser(testCmds, 256, func(id int, typ ArgType, arg string, num int) {
		got = append(got, typ.String()+":"+arg)
	}, func(bool, string) {})
	p.Parse([]byte("AT+CIND?\rAT+CIND=?\rAT+CHLD=?\r"))
	want := []string{"read:", "test:", "test:"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}
