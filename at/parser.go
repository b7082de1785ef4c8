// Package at implements the streaming AT command interpreter of the audio gateway.
package at

import (
	"strconv"
	"strings"

	"github.com/mgutz/logxi/v1"
)

var logger = log.New("at")

const (
	ctrlZ = 0x1A
	esc   = 0x1B

	wideMask = 0xFFF

	// DefaultMaxLen is used when Parser.MaxLen is unset.
	DefaultMaxLen = 256
)

// A CommandFunc is called for every recognized command with a valid argument.
// arg is the argument text following the command name, without the '='
// of a set. num holds the parsed value of integer set commands.
type CommandFunc func(id int, t ArgType, arg string, num int)

// An ErrorFunc is called for lines that can not be dispatched. unknown is
// true when no command matched, in which case buf holds the line.
type ErrorFunc func(unknown bool, buf string)

// Parser splits a byte stream into AT command lines and dispatches them
// against a command table. It is not safe for concurrent use.
type Parser struct {
	Commands []Command
	MaxLen   int
	Widen    bool // honor Command.Wide

	OnCommand CommandFunc
	OnError   ErrorFunc

	buf []byte
	pos int
}

// NewParser returns a parser for the given table.
func NewParser(cmds []Command, maxLen int, cmd CommandFunc, errf ErrorFunc) *Parser {
	return &Parser{
		Commands:  cmds,
		MaxLen:    maxLen,
		OnCommand: cmd,
		OnError:   errf,
	}
}

// Init drops any partial line and releases the buffer.
func (p *Parser) Init() {
	p.buf = nil
	p.pos = 0
}

// Pending returns the number of buffered bytes of the current line.
func (p *Parser) Pending() int { return p.pos }

// Parse consumes b. Lines may span calls.
func (p *Parser) Parse(b []byte) {
	if p.MaxLen < 2 {
		p.MaxLen = DefaultMaxLen
	}
	if p.buf == nil {
		p.buf = make([]byte, p.MaxLen)
		p.pos = 0
	}
	for i := 0; i < len(b); {
		for p.pos < p.MaxLen-1 && i < len(b) {
			c := b[i]
			i++
			if p.pos == 0 && c == 0 {
				continue
			}
			switch c {
			case '\r', '\n':
				if p.pos > 2 && (p.buf[0] == 'A' || p.buf[0] == 'a') && (p.buf[1] == 'T' || p.buf[1] == 't') {
					p.process(string(p.buf[2:p.pos]))
				}
				p.pos = 0
			case ctrlZ, esc:
				line := string(p.buf[:p.pos])
				p.pos = 0
				p.OnError(true, line)
			default:
				p.buf[p.pos] = c
				p.pos++
			}
		}
		if i < len(b) {
			logger.Warn("command too long, dropped", "len", p.pos)
			p.pos = 0
		}
	}
}

// match returns the longest command name that prefixes s, ignoring case.
func (p *Parser) match(s string) int {
	best := -1
	for i, c := range p.Commands {
		n := len(c.Name)
		if n > len(s) || !strings.EqualFold(c.Name, s[:n]) {
			continue
		}
		if best < 0 || n > len(p.Commands[best].Name) {
			best = i
		}
	}
	return best
}

func (p *Parser) process(line string) {
	idx := p.match(line)
	if idx < 0 {
		logger.Warn("unmatched command", "line", line)
		p.OnError(true, line)
		return
	}
	c := &p.Commands[idx]
	arg := line[len(c.Name):]

	var t ArgType
	switch {
	case arg == "":
		t = ArgNone
	case arg == "?":
		t, arg = ArgRead, ""
	case arg == "=?":
		t, arg = ArgTest, ""
	case len(arg) > 1 && arg[0] == '=':
		t = ArgSet
		arg = arg[1:]
	default:
		t = ArgFree
	}
	if t&c.Args == 0 {
		logger.Warn("argument type not allowed", "cmd", c.Name, "type", t)
		p.OnError(false, "")
		return
	}

	num := 0
	if t == ArgSet && c.Format == FmtInt {
		if c.Wide && p.Widen {
			num = parseWide(arg)
		} else {
			num = str2int(arg)
		}
		if num < c.Min || num > c.Max {
			logger.Warn("argument out of range", "cmd", c.Name, "arg", arg)
			p.OnError(false, "")
			return
		}
	}
	p.OnCommand(c.ID, t, arg, num)
}

// str2int parses a non-negative decimal no larger than MaxInt, skipping
// leading spaces. It returns -1 for anything else.
func str2int(s string) int {
	s = strings.TrimLeft(s, " ")
	if s == "" {
		return -1
	}
	v := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return -1
		}
		v = v*10 + int(s[i]-'0')
		if v > MaxInt {
			return -1
		}
	}
	return v
}

// parseWide accepts a 32-bit value and clears the reserved bits.
func parseWide(s string) int {
	v, err := strconv.ParseInt(strings.TrimLeft(s, " "), 10, 64)
	if err != nil || v < 0 || v >= 1<<32 {
		return -1
	}
	if v&^wideMask != 0 {
		logger.Warn("reserved bits set", "value", strconv.FormatInt(v, 16))
		v &= wideMask
	}
	return int(v)
}
