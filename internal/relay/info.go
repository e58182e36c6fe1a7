package relay

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/frtem2008/Server-finale-2.0/internal/logger"
)

// handleInfo answers one A$INFO$<sub> query. Only sessions that
// authenticated as admin get here with their role checked again against
// the accumulated admin set; everyone else is denied.
func (s *Server) handleInfo(sess *Session, sub string) {
	if !s.registry.IsAdmin(sess.ID()) {
		logger.Event(logger.CategoryWrongData,
			"Non-admin %d asked for info %q", sess.ID(), sub)
		s.reply(sess, "INFO$ERROR$ACCESS_DENIED")
		s.metrics.RecordReject("access_denied")
		return
	}

	// Subcommands match case-insensitively; the numeric id-resolve path
	// below is unaffected.
	switch strings.ToUpper(sub) {
	case "ONLINE":
		s.reply(sess, "INFO$ONLINE$"+s.describeOnline())
	case "REG":
		s.reply(sess, "INFO$REG$"+formatIDList(s.registry.RegisteredIDs()))
	case "ADMINS":
		s.reply(sess, "INFO$ADMINS$"+formatIDList(s.registry.AdminIDs()))
	case "CLIENTS":
		s.reply(sess, "INFO$CLIENTS$"+formatIDList(s.registry.ClientIDs()))
	case "HEALTH":
		s.reply(sess, "INFO$HEALTH$"+s.describeHealth())
	default:
		if isDigits(sub) {
			s.replyPeerIP(sess, sub)
			return
		}
		logger.Event(logger.CategoryWrongData,
			"Admin %d asked for unknown info %q", sess.ID(), sub)
		s.reply(sess, "INFO$ERROR$INVALID_SYNTAX$"+sub)
		s.metrics.RecordReject("info_syntax")
	}
}

// describeOnline renders every live session as
// "Ip: <ip>, id: <id>, root: <role>", ";"-joined.
func (s *Server) describeOnline() string {
	parts := make([]string, 0)
	for _, sess := range s.sessions.snapshot() {
		id := sess.ID()
		if id == 0 {
			continue
		}
		parts = append(parts,
			fmt.Sprintf("Ip: %s, id: %d, root: %s", sess.RemoteIP(), id, sess.Role()))
	}
	return strings.Join(parts, ";")
}

// replyPeerIP resolves a numeric info query to the live peer's IP. The
// response field is IP<addr> with no separator between the tag and the
// address.
func (s *Server) replyPeerIP(sess *Session, sub string) {
	id, err := strconv.Atoi(sub)
	if err != nil {
		s.reply(sess, "INFO$ERROR$INVALID_ID$"+sub)
		s.metrics.RecordReject("info_id")
		return
	}
	target := s.sessions.get(id)
	if target == nil {
		logger.Event(logger.CategoryWrongData,
			"Admin %d asked for the ip of offline id %d", sess.ID(), id)
		s.reply(sess, "INFO$ERROR$INVALID_ID$"+sub)
		s.metrics.RecordReject("info_id")
		return
	}
	s.reply(sess, "INFO$IP"+target.RemoteIP())
}

// describeHealth returns a one-line runtime snapshot: heap and system
// memory, goroutine count, GC cycles and uptime. Single line, so it fits
// the wire format unchanged.
func (s *Server) describeHealth() string {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	s.mu.Lock()
	started := s.startedAt
	s.mu.Unlock()

	uptime := time.Duration(0)
	if !started.IsZero() {
		uptime = time.Since(started).Round(time.Second)
	}

	return fmt.Sprintf(
		"heap=%dMB sys=%dMB goroutines=%d gc_cycles=%d sessions=%d pending=%d uptime=%s",
		ms.HeapAlloc/(1<<20), ms.Sys/(1<<20),
		runtime.NumGoroutine(), ms.NumGC,
		s.sessions.len(), s.ledger.PendingCount(), uptime)
}
