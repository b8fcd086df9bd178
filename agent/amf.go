// The MIT License (MIT)
//
// Copyright (c) 2013-2015 Oryx(ossrs)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

// Package agent accepts framed AMF payloads over TCP and decodes them,
// handing the resulting Value to a caller-supplied handler.
package agent

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sync"

	ol "github.com/ossrs/go-oryx-lib/logger"

	"github.com/ossrs/goamf/amf"
	"github.com/ossrs/goamf/core"
	"github.com/ossrs/goamf/kernel"
)

// Dialect picks which AMF wire dialect an Amf listener decodes frames as.
type Dialect int

const (
	DialectAMF0 Dialect = iota
	DialectAMF3
)

// Handler receives each successfully decoded value, along with the
// connection it arrived on (for a reply, or just for logging context).
type Handler func(conn net.Conn, v *amf.Value)

// maxFrameSize bounds a single length-prefixed payload; a hostile or
// corrupt length header fails fast rather than driving an unbounded read.
const maxFrameSize = 64 << 20

// Amf is the AMF-over-TCP agent: it listens at the service's configured
// addresses, reads one u32-length-prefixed payload at a time per
// connection, decodes it with Mapper, and invokes OnValue. Framing and
// lifecycle mirror the teacher's own listen/accept/reload shape.
type Amf struct {
	Dialect Dialect
	Mapper  amf.ClassMapper
	OnValue Handler

	listeners *kernel.TcpListeners
	quit      chan struct{}
	wait      sync.WaitGroup
}

func NewAmf(dialect Dialect, mapper amf.ClassMapper, onValue Handler) *Amf {
	if mapper == nil {
		mapper = amf.NilMapper{}
	}
	return &Amf{Dialect: dialect, Mapper: mapper, OnValue: onValue, quit: make(chan struct{})}
}

// Open starts listening at c.Listens and subscribes to future reload
// events.
func (v *Amf) Open(c *core.Config) (err error) {
	c.Subscribe(v)
	return v.applyListen(c)
}

func (v *Amf) Close() error {
	core.GsConfig.Unsubscribe(v)
	return v.close()
}

func (v *Amf) close() error {
	if v.listeners == nil {
		return nil
	}
	close(v.quit)
	err := v.listeners.Close()
	v.wait.Wait()
	v.listeners = nil
	v.quit = make(chan struct{})
	return err
}

func (v *Amf) applyListen(c *core.Config) (err error) {
	if v.listeners, err = kernel.NewTcpListeners(c.Listens); err != nil {
		ol.E(nil, "amf agent: build listeners failed, err is", err)
		return err
	}
	if err = v.listeners.ListenTCP(); err != nil {
		ol.E(nil, "amf agent: listen failed, err is", err)
		return err
	}
	ol.T(nil, "amf agent: listen at", c.Listens)

	v.wait.Add(1)
	go v.acceptCycle()

	return nil
}

func (v *Amf) acceptCycle() {
	defer v.wait.Done()
	for {
		conn, err := v.listeners.AcceptTCP()
		if err != nil {
			if err != kernel.ListenerDisposed {
				ol.W(nil, "amf agent: accept failed, err is", err)
			}
			return
		}

		v.wait.Add(1)
		go func() {
			defer v.wait.Done()
			defer conn.Close()
			defer func() {
				if r := recover(); r != nil {
					ol.E(nil, "amf agent: connection panic", r)
					ol.E(nil, string(debug.Stack()))
				}
			}()
			v.serve(conn)
		}()
	}
}

// serve reads frames from conn until it closes or sends a malformed frame,
// decoding each with the session's ClassMapper and dialect.
func (v *Amf) serve(conn net.Conn) {
	ctx := kernel.NewContext()
	ol.T(ctx, "amf agent: accept", conn.RemoteAddr())

	for {
		var header [4]byte
		if _, err := io.ReadFull(conn, header[:]); err != nil {
			if err != io.EOF {
				ol.W(ctx, "amf agent: read frame header failed, err is", err)
			}
			return
		}
		n := binary.BigEndian.Uint32(header[:])
		if n > maxFrameSize {
			ol.W(ctx, fmt.Sprintf("amf agent: frame of %d bytes exceeds %d, dropping connection", n, maxFrameSize))
			return
		}

		payload := make([]byte, n)
		if _, err := io.ReadFull(conn, payload); err != nil {
			ol.W(ctx, "amf agent: read frame body failed, err is", err)
			return
		}

		val, err := v.decode(payload)
		if err != nil {
			ol.W(ctx, "amf agent: decode failed, err is", err)
			return
		}

		if v.OnValue != nil {
			v.OnValue(conn, val)
		}
	}
}

func (v *Amf) decode(payload []byte) (*amf.Value, error) {
	if v.Dialect == DialectAMF3 {
		return amf.DecodeAMF3(payload, v.Mapper)
	}
	return amf.DecodeAMF0(payload, v.Mapper)
}

// OnReloadGlobal re-listens on a ReloadService event, which fires when the
// service's listen addresses or its translate_case setting change.
func (v *Amf) OnReloadGlobal(scope int, cc, pc *core.Config) error {
	if scope != core.ReloadService {
		return nil
	}
	if err := v.close(); err != nil {
		return err
	}
	return v.applyListen(cc)
}
