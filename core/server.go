/*
The MIT License (MIT)

Copyright (c) 2013-2015 SRS(simple-rtmp-server)

Permission is hereby granted, free of charge, to any person obtaining a copy of
this software and associated documentation files (the "Software"), to deal in
the Software without restriction, including without limitation the rights to
use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
the Software, and to permit persons to whom the Software is furnished to do so,
subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

package core

import (
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	ol "github.com/ossrs/go-oryx-lib/logger"
)

// ServerState is the server's lifecycle, state graph:
//
//	Init => Ready => Running => Closed
//	Init/Ready => Closed
type ServerState int

const (
	StateInit ServerState = iota
	StateReady
	StateRunning
	StateClosed
)

// OpenCloser is anything Server owns the lifecycle of: an Open that starts
// accepting work and a Close that unwinds it. agent.Amf implements this.
type OpenCloser interface {
	Open(c *Config) error
	Close() error
}

// Server drives one AMF service process: it owns the config, the signal
// loop, the periodic GC and the service's OpenCloser, and reacts to
// SIGHUP-driven reload via ReloadHandler.
type Server struct {
	sigs    chan os.Signal
	closed  ServerState
	closing chan bool
	quit    chan bool
	wg      sync.WaitGroup
	lock    sync.Mutex

	service OpenCloser
}

// NewServer constructs a Server that will Open/Close service once Run is
// called. service is passed in rather than constructed here so core has no
// import-time dependency on agent.
func NewServer(service OpenCloser) *Server {
	s := &Server{
		sigs:    make(chan os.Signal, 1),
		closed:  StateInit,
		closing: make(chan bool, 1),
		quit:    make(chan bool, 1),
		service: service,
	}
	GsConfig.Subscribe(s)
	return s
}

func (s *Server) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed == StateClosed {
		ol.T(nil, "server already closed")
		return
	}

	if s.closed == StateRunning {
		ol.T(nil, "notify server to stop")
		select {
		case s.quit <- true:
		default:
		}
		<-s.closing
	}

	GsConfig.Unsubscribe(s)
	s.closed = StateClosed
	ol.T(nil, "server closed")
}

func (s *Server) ParseConfig(conf string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed != StateInit {
		panic("server: invalid state")
	}
	s.closed = StateReady

	ol.T(nil, "start to parse config file", conf)
	return GsConfig.Loads(conf)
}

func (s *Server) PrepareLogger() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed != StateReady {
		panic("server: invalid state")
	}
	return GsConfig.OpenLogger()
}

func (s *Server) Initialize() (err error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed != StateReady {
		panic("server: invalid state")
	}

	signal.Notify(s.sigs, os.Interrupt, syscall.SIGTERM)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ReloadWorker()
	}()

	if err = s.service.Open(GsConfig); err != nil {
		ol.E(nil, "start service failed, err is", err)
		return err
	}

	ol.T(nil, "server initialized,", GsConfig)
	return nil
}

func (s *Server) Run() error {
	func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		if s.closed != StateReady {
			panic("server: invalid state")
		}
		s.closed = StateRunning
	}()

	defer func() {
		select {
		case s.closing <- true:
		default:
		}
	}()

	ol.T(nil, "server running")
	s.applyWorkers(GsConfig.Workers)

	for {
		select {
		case sig := <-s.sigs:
			ol.T(nil, "got signal", sig)
			select {
			case s.quit <- true:
			default:
			}
		case <-s.quit:
			if err := s.service.Close(); err != nil {
				ol.W(nil, "close service failed, err is", err)
			}
			s.wg.Wait()
			ol.W(nil, "server quit")
			return nil
		case <-time.After(time.Second * time.Duration(GsConfig.Go.GcInterval)):
			runtime.GC()
			ol.T(nil, "go runtime gc every", GsConfig.Go.GcInterval, "seconds")
		}
	}
}

// OnReloadGlobal applies a Workers change immediately; Service scope
// changes are handled by the service's own ReloadHandler. Log scope changes
// are not applied: the logger opened at startup stays in use.
func (s *Server) OnReloadGlobal(scope int, cc, pc *Config) error {
	if scope == ReloadWorkers {
		s.applyWorkers(cc.Workers)
	}
	return nil
}

func (s *Server) applyWorkers(workers int) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pv := runtime.GOMAXPROCS(workers)
	ol.T(nil, "apply workers", workers, "previous was", pv)
}
