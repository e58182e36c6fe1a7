package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/frtem2008/Server-finale-2.0/internal/logger"
)

// handleSession drives one connection through its whole life: the login
// handshake first, then the steady-state line loop. Teardown always goes
// through terminate, whichever phase the session dies in.
func (s *Server) handleSession(ctx context.Context, sess *Session) {
	defer s.terminate(sess)

	id, role, ok := s.authenticate(ctx, sess)
	if !ok {
		return
	}

	s.registry.MarkOnline(id, role)
	s.refreshOnline()
	logger.Event(logger.CategoryConnection,
		"Client connected: ip address is %s, root is %s, unique id is %d",
		sess.RemoteIP(), role, id)
	s.writeConnection(id, true)

	s.serveLines(ctx, sess)
}

// authenticate runs the login loop. Retryable rejections (EXISTS, ONLINE,
// FREE) keep the loop going; a malformed login line is answered with
// LOGIN$INVALID_SYNTAX and ends the session. On success the session is
// bound in the live table and the peer has received LOGIN$CONNECT.
func (s *Server) authenticate(ctx context.Context, sess *Session) (int, Role, bool) {
	for {
		select {
		case <-ctx.Done():
			return 0, RoleUnauthorized, false
		default:
		}

		line, err := sess.ReadLine()
		if err != nil {
			return 0, RoleUnauthorized, false
		}

		lg, ok := parseLogin(line)
		if !ok {
			logger.Event(logger.CategoryWrongData,
				"Invalid login line from %s: %q", sess.RemoteIP(), line)
			s.reply(sess, "LOGIN$INVALID_SYNTAX$"+line)
			s.metrics.RecordReject("login_syntax")
			return 0, RoleUnauthorized, false
		}

		role := roleFromTag(lg.RoleTag)

		if lg.SignedID <= 0 {
			id := -lg.SignedID
			if err := s.registry.Register(id); err != nil {
				logger.Event(logger.CategoryWrongData,
					"Registration rejected for id %d: already taken", id)
				s.reply(sess, fmt.Sprintf("LOGIN$INVALID_ID$EXISTS$%d", id))
				s.metrics.RecordReject("register_exists")
				continue
			}
			logger.Event(logger.CategoryRegistration,
				"Successfully registered new user with root %s and id: %d", role, id)

			if err := s.sessions.bind(sess, id, role); err != nil {
				s.reply(sess, fmt.Sprintf("LOGIN$INVALID_ID$ONLINE$%d", id))
				s.metrics.RecordReject("login_online")
				continue
			}
			if err := sess.WriteLine(fmt.Sprintf("LOGIN$CONNECT$%s$%d", lg.RoleTag, id)); err != nil {
				return 0, RoleUnauthorized, false
			}
			return id, role, true
		}

		id := lg.SignedID
		if !s.registry.IsRegistered(id) {
			logger.Event(logger.CategoryWrongData,
				"Login rejected for id %d: id is free", id)
			s.reply(sess, fmt.Sprintf("LOGIN$INVALID_ID$FREE$%d", id))
			s.metrics.RecordReject("login_free")
			continue
		}
		if err := s.sessions.bind(sess, id, role); err != nil {
			logger.Event(logger.CategoryWrongData,
				"Login rejected for id %d: already online", id)
			s.reply(sess, fmt.Sprintf("LOGIN$INVALID_ID$ONLINE$%d", id))
			s.metrics.RecordReject("login_online")
			continue
		}
		if err := sess.WriteLine(fmt.Sprintf("LOGIN$CONNECT$%s$%d", lg.RoleTag, id)); err != nil {
			return 0, RoleUnauthorized, false
		}
		return id, role, true
	}
}

// serveLines is the steady-state loop of an authorized session: read a
// line, process it, recompute the derived online set.
func (s *Server) serveLines(ctx context.Context, sess *Session) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := sess.ReadLine()
		if err != nil {
			return
		}

		s.processLine(sess, line)
		s.refreshOnline()
	}
}

// processLine validates the shared line shape and branches on the role the
// session authenticated with, never on what the line claims to be.
func (s *Server) processLine(sess *Session, line string) {
	start := time.Now()

	fields, ok := splitLine(line)
	if !ok {
		logger.Event(logger.CategoryWrongData,
			"Received invalid data from client with id %d: %q", sess.ID(), line)
		s.reply(sess, "INVALID$DATA$"+line)
		s.metrics.RecordReject("data")
		s.metrics.RecordLine("invalid", time.Since(start))
		return
	}

	switch sess.Role() {
	case RoleAdmin:
		s.handleAdminLine(sess, line, fields, start)
	case RoleClient:
		s.handleClientLine(sess, line, fields, start)
	}
}

// handleAdminLine dispatches an admin's line: either the INFO subprotocol
// or a command to forward to a client. A pending request is created only
// after every precondition on the target has passed, so a rejected command
// never consumes a correlation id.
func (s *Server) handleAdminLine(sess *Session, line string, fields []string, start time.Time) {
	if fields[0] == "A" && fields[1] == "INFO" {
		if len(fields) != 3 {
			s.reply(sess, "INFO$ERROR$INVALID_SYNTAX$"+line)
			s.metrics.RecordReject("info_syntax")
			s.metrics.RecordLine("info", time.Since(start))
			return
		}
		s.handleInfo(sess, fields[2])
		s.metrics.RecordLine("info", time.Since(start))
		return
	}

	cmd, ok := parseAdminCommand(fields)
	if !ok {
		logger.Event(logger.CategoryWrongData,
			"Received invalid data from client with id %d: %q", sess.ID(), line)
		s.reply(sess, "INVALID$DATA$"+line)
		s.metrics.RecordReject("data")
		s.metrics.RecordLine("invalid", time.Since(start))
		return
	}

	switch {
	case cmd.TargetID == sess.ID():
		logger.Event(logger.CategoryWrongData,
			"Admin %d tried to send a command to itself", sess.ID())
		s.reply(sess, fmt.Sprintf("INVALID$SELF_ID$%d", cmd.TargetID))
		s.metrics.RecordReject("self_id")

	case s.registry.IsAdmin(cmd.TargetID):
		logger.Event(logger.CategoryWrongData,
			"Admin %d tried to send a command to admin %d", sess.ID(), cmd.TargetID)
		s.reply(sess, fmt.Sprintf("INVALID$ADMIN_ID$%d", cmd.TargetID))
		s.metrics.RecordReject("admin_id")

	case !s.registry.IsRegistered(cmd.TargetID):
		logger.Event(logger.CategoryWrongData,
			"Invalid command from admin %d: id %d is free", sess.ID(), cmd.TargetID)
		s.reply(sess, fmt.Sprintf("INVALID$FREE$%d", cmd.TargetID))
		s.metrics.RecordReject("free")

	default:
		target := s.sessions.get(cmd.TargetID)
		if target == nil {
			logger.Event(logger.CategoryError,
				"No online client with id %d", cmd.TargetID)
			s.reply(sess, fmt.Sprintf("INVALID$OFFLINE_CLIENT$%d", cmd.TargetID))
			s.metrics.RecordReject("offline_client")
			break
		}

		req := s.ledger.CreatePending(sess.ID(), cmd.TargetID, cmd.Cmd, cmd.Args)
		s.metrics.SetPendingRequests(s.ledger.PendingCount())
		if err := target.WriteLine(fmt.Sprintf("%d$%s$%s", req.ID, cmd.Cmd, cmd.Args)); err != nil {
			logger.Error("Failed to forward command %d to client %d: %v", req.ID, cmd.TargetID, err)
		}
	}

	s.metrics.RecordLine("admin_command", time.Since(start))
}

// handleClientLine resolves a client's execution report against the pending
// ledger, persists the completed request and forwards the outcome to the
// issuing admin. A report for an unknown correlation id is logged and
// dropped.
func (s *Server) handleClientLine(sess *Session, line string, fields []string, start time.Time) {
	rep, ok := parseClientReport(fields)
	if !ok {
		logger.Event(logger.CategoryWrongData,
			"Received invalid data from client with id %d: %q", sess.ID(), line)
		s.reply(sess, "INVALID$DATA$"+line)
		s.metrics.RecordReject("data")
		s.metrics.RecordLine("invalid", time.Since(start))
		return
	}

	req := s.ledger.Lookup(rep.CorrelationID)
	if req.IsZero() {
		logger.Event(logger.CategoryWrongData,
			"Client %d reported on unknown request %d", sess.ID(), rep.CorrelationID)
		s.metrics.RecordReject("unknown_request")
		s.metrics.RecordLine("client_report", time.Since(start))
		return
	}

	done, err := s.ledger.Complete(req, rep.Status, time.Now())
	if err != nil {
		logger.Error("Failed to complete request %d: %v", req.ID, err)
		s.metrics.RecordLine("client_report", time.Since(start))
		return
	}
	s.metrics.SetPendingRequests(s.ledger.PendingCount())
	if done.IsZero() {
		// Lost a race to a duplicate report; the first one won.
		s.metrics.RecordLine("client_report", time.Since(start))
		return
	}

	switch {
	case !s.registry.IsRegistered(done.AdminID):
		s.reply(sess, fmt.Sprintf("INVALID$FREE$%d", done.AdminID))
		s.metrics.RecordReject("free")

	default:
		admin := s.sessions.get(done.AdminID)
		if admin == nil {
			logger.Event(logger.CategoryError,
				"No online admin with id %d to receive report %d", done.AdminID, done.ID)
			s.reply(sess, fmt.Sprintf("INVALID$OFFLINE_ADMIN$%d", done.AdminID))
			s.metrics.RecordReject("offline_admin")
			break
		}
		out := fmt.Sprintf("%d$%s$%s$%s", rep.ClientID, done.Cmd, done.Args, done.Status)
		if err := admin.WriteLine(out); err != nil {
			logger.Error("Failed to forward report %d to admin %d: %v", done.ID, done.AdminID, err)
		}
	}

	s.metrics.RecordLine("client_report", time.Since(start))
}
