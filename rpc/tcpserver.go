package rpc

import (
	"SmoothMandelbrot/misc"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/BrugadaSyndrome/bslogger"
)

// TcpServer serves the exported methods of one object over net/rpc, one goroutine per connection.
type TcpServer struct {
	address  string
	listener *net.TCPListener
	object   interface{}
	shutdown chan struct{}
	stopped  chan struct{}

	Logger bslogger.Logger
	Name   string
}

func NewTcpServer(object interface{}, address string, name string) TcpServer {
	return TcpServer{
		address:  address,
		object:   object,
		shutdown: make(chan struct{}),
		stopped:  make(chan struct{}),
		Logger:   bslogger.NewLogger(name, misc.Verbosity, nil),
		Name:     name,
	}
}

// Address is the address the server listens on. Once Run has succeeded it reflects the real port, which matters when
// the configured port was 0.
func (ts *TcpServer) Address() string {
	if ts.listener != nil {
		return ts.listener.Addr().String()
	}
	return ts.address
}

func (ts *TcpServer) Run() error {
	handler := rpc.NewServer()
	err := handler.Register(ts.object)
	if err != nil {
		ts.Logger.Error("Registering object")
		return err
	}

	tcpAddress, err := net.ResolveTCPAddr("tcp", ts.address)
	if err != nil {
		ts.Logger.Errorf("Resolving tcp address %s", ts.address)
		return err
	}

	ts.listener, err = net.ListenTCP("tcp", tcpAddress)
	if err != nil {
		ts.Logger.Errorf("Listening at address %s", ts.address)
		return err
	}

	go func() {
		defer close(ts.stopped)
		for {
			select {
			case <-ts.shutdown:
				// Server has been given the signal to shutdown
				err := ts.listener.Close()
				if err != nil {
					ts.Logger.Infof("Server closed listener - %s", err)
				}
				return
			default:
				// Poll this connection periodically
				ts.listener.SetDeadline(time.Now().Add(1 * time.Second))
			}

			conn, err := ts.listener.Accept()
			if err != nil {
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					// Deadline timeout has occurred
					continue
				}
				// There was actually an error listening
				ts.Logger.Warningf("Accepting connection at address %s - %s", ts.address, err.Error())
				continue
			}

			ts.Logger.Debugf("Server opened connection to client at address %s", conn.RemoteAddr())
			go handler.ServeConn(conn)
		}
	}()

	ts.Logger.Infof("Running server at address %s", ts.Address())
	return nil
}

func (ts *TcpServer) Stop() error {
	select {
	case <-ts.shutdown:
		return errors.New("server already stopped")
	default:
	}

	ts.Logger.Infof("Shutting down server at address %s", ts.Address())
	close(ts.shutdown)
	if ts.listener != nil {
		<-ts.stopped
	}
	return nil
}
