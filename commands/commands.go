// Package commands turns slash-prefixed chat input into typed commands.
package commands

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/korjavin/profesorbot/models"
	"github.com/korjavin/profesorbot/tools"
)

// Type identifies what a command asks for
type Type string

const (
	TypeHelp       Type = "help"
	TypeSetSubject Type = "set_subject"
	TypeSetTopic   Type = "set_topic"
	TypeQuizStart  Type = "quiz_start"
	TypeQuizReset  Type = "quiz_reset"
	TypeTool       Type = "tool"
	TypeSetMode    Type = "set_mode"
	TypeSetMemory  Type = "set_memory"
	TypeSetSize    Type = "set_size"
	TypeProgress   Type = "progress"
	TypeSwitchUser Type = "switch_user"
	TypeListUsers  Type = "list_users"
)

// Command is a parsed slash command. Only the fields relevant to Type are set.
type Command struct {
	Type Type
	Raw  string

	// Unknown holds the raw input when a help command was produced from
	// unrecognized text
	Unknown string

	Subject   string
	Topic     string
	Mode      models.Mode
	UseMemory bool
	Size      models.ResponseSize
	User      string

	Tool    string
	Payload tools.Payload
}

var (
	helpRe    = regexp.MustCompile(`(?i)^/(help|ayuda)\s*$`)
	subjectRe = regexp.MustCompile(`(?i)^/materia\s+(.+)$`)
	topicRe   = regexp.MustCompile(`(?i)^/tema\s+(.+)$`)
	quizRe    = regexp.MustCompile(`(?i)^/quiz\s+(start|reset)\s*$`)
	modeRe    = regexp.MustCompile(`(?i)^/modo\s+(\S+)\s*$`)
	memRe     = regexp.MustCompile(`(?i)^/mem\s+(on|off)\s*$`)
	sizeRe    = regexp.MustCompile(`(?i)^/size\s+(corta|normal|larga|short|long)\s*$`)
	progRe    = regexp.MustCompile(`(?i)^/progreso\s*$`)
	userRe    = regexp.MustCompile(`(?i)^/usuario\s+(.+)$`)
	usersRe   = regexp.MustCompile(`(?i)^/usuarios\s*$`)

	calcRe     = regexp.MustCompile(`(?i)^/calc\s+(.+)$`)
	wikiRe     = regexp.MustCompile(`(?i)^/wiki\s+(.+)$`)
	derivaRe   = regexp.MustCompile(`(?i)^/deriva\s+(.+?)(?:\s+([a-zA-Z]))?\s*$`)
	integraRe  = regexp.MustCompile(`(?i)^/integra\s+(.+?)(?:\s+([a-zA-Z]))?\s*$`)
	limiteRe   = regexp.MustCompile(`(?i)^/limite\s+(.+?)\s+([a-zA-Z])\s*->\s*(\S+)(?:\s+([+-]))?\s*$`)
	resuelveRe = regexp.MustCompile(`(?i)^/resuelve\s+(.+)$`)
	simpRe     = regexp.MustCompile(`(?i)^/simplifica\s+(.+)$`)
	unitsRe    = regexp.MustCompile(`(?i)^/u\s+(.+)$`)
	molarRe    = regexp.MustCompile(`(?i)^/mm\s+([A-Za-z0-9()]+)\s*$`)
	suvatRe    = regexp.MustCompile(`(?i)^/suvat\b`)
	suvatKVRe  = regexp.MustCompile(`(?i)\b([uvats])\s*=\s*([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)`)
	statsRe    = regexp.MustCompile(`(?i)^/stats\s+(.+)$`)
	plotRe     = regexp.MustCompile(`(?i)^/plot\s+y=(.+?)\s+x:(\S+)\s*$`)
	fencedRe   = regexp.MustCompile("(?i)^/analiza\\s+```(?:python)?\\n([\\s\\S]+?)\\n```\\s*$")
	analizaRe  = regexp.MustCompile(`(?i)^/analiza\s+(.+)$`)
)

// Parse recognizes a slash command. It returns false when the trimmed text
// is not a command at all. Anything prefixed with "/" that matches no known
// shape becomes a help command carrying the raw text in Unknown.
func Parse(raw string) (*Command, bool) {
	t := strings.TrimSpace(raw)
	if !strings.HasPrefix(t, "/") {
		return nil, false
	}
	if c := parseControl(t); c != nil {
		return c, true
	}
	if c := parseTool(t); c != nil {
		return c, true
	}
	return &Command{Type: TypeHelp, Raw: t, Unknown: t}, true
}

func parseControl(t string) *Command {
	if helpRe.MatchString(t) {
		return &Command{Type: TypeHelp, Raw: t}
	}
	if m := subjectRe.FindStringSubmatch(t); m != nil {
		return &Command{Type: TypeSetSubject, Raw: t, Subject: strings.TrimSpace(m[1])}
	}
	if m := topicRe.FindStringSubmatch(t); m != nil {
		return &Command{Type: TypeSetTopic, Raw: t, Topic: strings.TrimSpace(m[1])}
	}
	if m := quizRe.FindStringSubmatch(t); m != nil {
		if strings.EqualFold(m[1], "start") {
			return &Command{Type: TypeQuizStart, Raw: t}
		}
		return &Command{Type: TypeQuizReset, Raw: t}
	}
	if m := modeRe.FindStringSubmatch(t); m != nil {
		if mode, ok := models.ParseMode(m[1]); ok {
			return &Command{Type: TypeSetMode, Raw: t, Mode: mode}
		}
		return nil
	}
	if m := memRe.FindStringSubmatch(t); m != nil {
		return &Command{Type: TypeSetMemory, Raw: t, UseMemory: strings.EqualFold(m[1], "on")}
	}
	if m := sizeRe.FindStringSubmatch(t); m != nil {
		return &Command{Type: TypeSetSize, Raw: t, Size: models.ParseResponseSize(m[1])}
	}
	if progRe.MatchString(t) {
		return &Command{Type: TypeProgress, Raw: t}
	}
	if usersRe.MatchString(t) {
		return &Command{Type: TypeListUsers, Raw: t}
	}
	if m := userRe.FindStringSubmatch(t); m != nil {
		return &Command{Type: TypeSwitchUser, Raw: t, User: strings.TrimSpace(m[1])}
	}
	return nil
}

func tool(t, name string, p tools.Payload) *Command {
	return &Command{Type: TypeTool, Raw: t, Tool: name, Payload: p}
}

func orX(v string) string {
	if v == "" {
		return "x"
	}
	return v
}

func parseTool(t string) *Command {
	if m := calcRe.FindStringSubmatch(t); m != nil {
		return tool(t, tools.Calc, tools.Payload{Expr: strings.TrimSpace(m[1])})
	}
	if m := wikiRe.FindStringSubmatch(t); m != nil {
		return tool(t, tools.Wiki, tools.Payload{Query: strings.TrimSpace(m[1]), Lang: "es"})
	}
	if m := derivaRe.FindStringSubmatch(t); m != nil {
		return tool(t, tools.Deriva, tools.Payload{Expr: strings.TrimSpace(m[1]), Var: orX(m[2])})
	}
	if m := integraRe.FindStringSubmatch(t); m != nil {
		return tool(t, tools.Integra, tools.Payload{Expr: strings.TrimSpace(m[1]), Var: orX(m[2])})
	}
	if m := limiteRe.FindStringSubmatch(t); m != nil {
		return tool(t, tools.Limite, tools.Payload{Expr: strings.TrimSpace(m[1]), Var: m[2], At: m[3], Dir: m[4]})
	}
	if m := resuelveRe.FindStringSubmatch(t); m != nil {
		return tool(t, tools.Resuelve, tools.Payload{Eq: strings.TrimSpace(m[1]), Var: "x"})
	}
	if m := simpRe.FindStringSubmatch(t); m != nil {
		return tool(t, tools.Simplifica, tools.Payload{Expr: strings.TrimSpace(m[1])})
	}
	if m := unitsRe.FindStringSubmatch(t); m != nil {
		return tool(t, tools.Units, tools.Payload{Expr: strings.TrimSpace(m[1])})
	}
	if m := molarRe.FindStringSubmatch(t); m != nil {
		return tool(t, tools.MolarMass, tools.Payload{Formula: m[1]})
	}
	if suvatRe.MatchString(t) {
		values := map[string]float64{}
		for _, kv := range suvatKVRe.FindAllStringSubmatch(t, -1) {
			if v, err := strconv.ParseFloat(kv[2], 64); err == nil {
				values[strings.ToLower(kv[1])] = v
			}
		}
		return tool(t, tools.Suvat, tools.Payload{Values: values})
	}
	if m := statsRe.FindStringSubmatch(t); m != nil {
		return tool(t, tools.Stats, tools.Payload{List: strings.TrimSpace(m[1])})
	}
	if m := plotRe.FindStringSubmatch(t); m != nil {
		return tool(t, tools.Plot, tools.Payload{Expr: strings.TrimSpace(m[1]), XSpec: "x:" + strings.TrimSpace(m[2])})
	}
	if m := fencedRe.FindStringSubmatch(t); m != nil {
		return tool(t, tools.Analiza, tools.Payload{Code: m[1]})
	}
	if m := analizaRe.FindStringSubmatch(t); m != nil {
		return tool(t, tools.Analiza, tools.Payload{Code: m[1]})
	}
	return nil
}
