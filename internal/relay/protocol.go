package relay

import (
	"strconv"
	"strings"
	"time"
)

// The wire protocol is newline-terminated UTF-8 text with fields joined by
// "$". Validation is explicit field-count and field-content checks after a
// split; there is deliberately no regexp involved.

const fieldSep = "$"

// auditDateLayout is the timestamp format of every durable audit line,
// DD.MM.YYYY[HH:MM:SS].
const auditDateLayout = "02.01.2006[15:04:05]"

// splitLine splits a steady-state line into its fields. A line without a
// single separator is rejected outright; with at least one, the split
// always yields two or more fields.
func splitLine(line string) ([]string, bool) {
	if !strings.Contains(line, fieldSep) {
		return nil, false
	}
	return strings.Split(line, fieldSep), true
}

func formatDate(t time.Time) string {
	return t.Format(auditDateLayout)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// loginLine is the parsed form of the two-field login/registration line
// <role-tag>$<signed-id>.
type loginLine struct {
	RoleTag  string
	SignedID int
}

// parseLogin validates the login line shape. Any violation (wrong field
// count, unparsable id) is fatal for the session.
func parseLogin(line string) (loginLine, bool) {
	fields := strings.Split(line, fieldSep)
	if len(fields) != 2 {
		return loginLine{}, false
	}
	signed, err := strconv.Atoi(fields[1])
	if err != nil {
		return loginLine{}, false
	}
	return loginLine{RoleTag: fields[0], SignedID: signed}, true
}

// adminCommand is the parsed form of A$<targetId>$<command>$<args>.
type adminCommand struct {
	TargetID int
	Cmd      string
	Args     string
}

// parseAdminCommand validates the admin command shape against the split
// fields of the raw line. Arguments may themselves contain "$": everything
// after the third separator belongs to Args.
func parseAdminCommand(fields []string) (adminCommand, bool) {
	if len(fields) < 4 {
		return adminCommand{}, false
	}
	if strings.TrimSpace(fields[0]) != "A" {
		return adminCommand{}, false
	}
	if !isDigits(fields[1]) {
		return adminCommand{}, false
	}
	cmd := fields[2]
	args := strings.Join(fields[3:], fieldSep)
	if cmd == "" || args == "" {
		return adminCommand{}, false
	}
	target, err := strconv.Atoi(fields[1])
	if err != nil {
		return adminCommand{}, false
	}
	return adminCommand{TargetID: target, Cmd: cmd, Args: args}, true
}

// clientReport is the parsed form of C$<clientId>$<correlationId>$<status>.
type clientReport struct {
	ClientID      int
	CorrelationID int64
	Status        string
}

// parseClientReport validates the client completion-report shape. The
// status may contain "$".
func parseClientReport(fields []string) (clientReport, bool) {
	if len(fields) < 4 {
		return clientReport{}, false
	}
	if strings.TrimSpace(fields[0]) != "C" {
		return clientReport{}, false
	}
	if !isDigits(fields[1]) || !isDigits(fields[2]) {
		return clientReport{}, false
	}
	status := strings.Join(fields[3:], fieldSep)
	if status == "" {
		return clientReport{}, false
	}
	clientID, err := strconv.Atoi(fields[1])
	if err != nil {
		return clientReport{}, false
	}
	corrID, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return clientReport{}, false
	}
	return clientReport{ClientID: clientID, CorrelationID: corrID, Status: status}, true
}

// formatIDList renders an id list the way the info responses expose sets:
// "[1, 2, 3]".
func formatIDList(ids []int) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(id))
	}
	b.WriteByte(']')
	return b.String()
}
