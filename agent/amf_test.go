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

package agent

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/ossrs/goamf/amf"
)

// writeFrame writes a u32-length-prefixed payload, matching the framing
// Amf.serve expects on the wire.
func writeFrame(t *testing.T, conn net.Conn, payload []byte) {
	t.Helper()
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := conn.Write(header[:]); err != nil {
		t.Fatalf("write frame header: %v", err)
	}
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("write frame body: %v", err)
	}
}

func TestServeDecodesFramedAMF0Payload(t *testing.T) {
	want := amf.NewString("hello")
	wire, err := amf.EncodeAMF0(want, amf.NilMapper{})
	if err != nil {
		t.Fatalf("EncodeAMF0: %v", err)
	}

	got := make(chan *amf.Value, 1)
	a := NewAmf(DialectAMF0, amf.NilMapper{}, func(conn net.Conn, v *amf.Value) {
		got <- v
	})

	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		a.serve(server)
		close(done)
	}()

	writeFrame(t, client, wire)

	select {
	case v := <-got:
		if !v.Equal(want) {
			t.Fatalf("decoded %#v, want %#v", v, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for decoded value")
	}

	client.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after client closed")
	}
}

func TestServeDecodesFramedAMF3Payload(t *testing.T) {
	want := amf.NewInteger(42)
	wire, err := amf.EncodeAMF3(want, amf.NilMapper{})
	if err != nil {
		t.Fatalf("EncodeAMF3: %v", err)
	}

	got := make(chan *amf.Value, 1)
	a := NewAmf(DialectAMF3, amf.NilMapper{}, func(conn net.Conn, v *amf.Value) {
		got <- v
	})

	client, server := net.Pipe()
	defer client.Close()

	go a.serve(server)

	writeFrame(t, client, wire)

	select {
	case v := <-got:
		if !v.Equal(want) {
			t.Fatalf("decoded %#v, want %#v", v, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for decoded value")
	}
}

func TestServeDropsOversizedFrame(t *testing.T) {
	a := NewAmf(DialectAMF0, amf.NilMapper{}, func(conn net.Conn, v *amf.Value) {
		t.Fatal("OnValue must not be called for an oversized frame")
	})

	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		a.serve(server)
		close(done)
	}()

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], maxFrameSize+1)
	if _, err := client.Write(header[:]); err != nil {
		t.Fatalf("write oversized header: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not drop the connection for an oversized frame")
	}
}

func TestServeStopsOnMalformedPayload(t *testing.T) {
	a := NewAmf(DialectAMF0, amf.NilMapper{}, func(conn net.Conn, v *amf.Value) {
		t.Fatal("OnValue must not be called for a malformed payload")
	})

	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		a.serve(server)
		close(done)
	}()

	// A single 0xff marker byte is not a valid AMF0 value for any dialect.
	writeFrame(t, client, []byte{0xff})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after a decode failure")
	}
}
