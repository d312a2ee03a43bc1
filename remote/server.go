package remote

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/c35s/hydra/uapi"
	"golang.org/x/sync/errgroup"
)

// Server serves a device to any number of connections.
// The device serializes concurrent accesses itself.
type Server struct {
	Device Device
}

// Serve accepts connections on l until ctx is done or accepting fails.
// It closes l and every accepted connection before returning.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return l.Close()
	})

	g.Go(func() error {
		for {
			conn, err := l.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}

				return err
			}

			g.Go(func() error {
				s.serveConn(ctx, conn)
				return nil
			})
		}
	})

	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}

	return err
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	var (
		r = bufio.NewReaderSize(conn, sizeofRequest)
		w = bufio.NewWriterSize(conn, sizeofResponse)
	)

	for {
		var req request
		if err := binary.Read(r, le, &req); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
				slog.Error("hydra remote read failed", "remote", conn.RemoteAddr(), "err", err)
			}

			return
		}

		res := s.handle(req)

		if err := binary.Write(w, le, &res); err != nil {
			slog.Error("hydra remote write failed", "remote", conn.RemoteAddr(), "err", err)
			return
		}

		if err := w.Flush(); err != nil {
			if ctx.Err() == nil {
				slog.Error("hydra remote write failed", "remote", conn.RemoteAddr(), "err", err)
			}

			return
		}
	}
}

func (s *Server) handle(req request) (res response) {
	var err error

	switch req.Op {
	case opInfo:
		res.Info, err = s.Device.Info()

	case opRead32:
		res.Value, err = s.Device.Read32(req.Offset)

	case opWrite32:
		err = s.Device.Write32(req.Offset, req.Value)

	case opDMA:
		err = s.Device.SubmitDMA(uapi.DMARequest{
			Src:   req.Src,
			Dst:   req.Dst,
			Len:   req.Value,
			Flags: req.Flags,
		})

	case opReadBAR1:
		res.Value, err = s.Device.ReadBAR1(req.Offset)

	default:
		res.Status = statusBadOp
		return res
	}

	if err != nil {
		slog.Debug("hydra remote op failed", "op", req.Op, "offset", req.Offset, "err", err)
	}

	res.Status = statusOf(err)
	return res
}
