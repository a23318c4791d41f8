package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"runtime/debug"

	"github.com/conneroisu/poolserve/internal/errors"
	"github.com/conneroisu/poolserve/internal/logging"
	"github.com/conneroisu/poolserve/internal/protocol"
	"github.com/conneroisu/poolserve/internal/validation"
)

var internalErrorBody = []byte("Internal Server Error")

// handleConnection is the pool job for one accepted connection: a single
// read, one parse, one handler, one response, close. Nothing that goes
// wrong here escapes the job.
func (s *Server) handleConnection(conn net.Conn, id uint64) {
	defer conn.Close()

	ctx := context.Background()
	remote := remoteAddr(conn)
	log := s.logger.With("conn_id", id, "remote", remote)
	op := logging.StartOperation(log, "handle_connection")

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("connection handler panicked: %v", r)
			log.Error(ctx, err, "Recovered from panic", "stack", string(debug.Stack()))
			resp := protocol.NewResponse(protocol.StatusInternalServerError, nil, internalErrorBody)
			_ = resp.Send(conn)
			op.EndWithError(ctx, err)
		}
	}()

	buf := make([]byte, s.readBufferSize())
	n, err := conn.Read(buf)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		s.errHandler.Handle(ctx, errors.NewConnectionReadError(remote, err), "conn_id", id)
		op.EndWithError(ctx, err)
		return
	}

	req := protocol.Parse(buf[:n])
	route, handler := s.router.Route(req)
	resp := handler.Handle(ctx, req)

	if err := resp.Send(conn); err != nil {
		s.errHandler.Handle(ctx, errors.NewConnectionWriteError(remote, err), "conn_id", id)
		op.EndWithError(ctx, err)
		return
	}

	log.Info(ctx, "Request served",
		"method", req.Method.String(),
		"path", validation.SanitizeInput(req.Path),
		"route", route.String(),
		"status", resp.StatusCode,
		"bytes", len(resp.Body))
	op.End(ctx)
}

func (s *Server) readBufferSize() int {
	if s.config.Server.ReadBufferSize > 0 {
		return s.config.Server.ReadBufferSize
	}
	return 1024
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
