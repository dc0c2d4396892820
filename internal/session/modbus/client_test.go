package modbus

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

// loopback is a tiny Modbus TCP responder for FC 3. Register n holds
// value n+1000; addresses at or above limit answer exception 0x02.
type loopback struct {
	ln    net.Listener
	limit uint16
	units chan byte
}

func startLoopback(t *testing.T, limit uint16) *loopback {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	lb := &loopback{ln: ln, limit: limit, units: make(chan byte, 16)}
	go lb.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return lb
}

func (lb *loopback) addr() string { return lb.ln.Addr().String() }

func (lb *loopback) serve() {
	for {
		conn, err := lb.ln.Accept()
		if err != nil {
			return
		}
		go lb.handle(conn)
	}
}

func (lb *loopback) handle(conn net.Conn) {
	defer conn.Close()
	for {
		hdr := make([]byte, 7)
		if _, err := io.ReadFull(conn, hdr); err != nil {
			return
		}
		n := int(binary.BigEndian.Uint16(hdr[4:6])) - 1
		pdu := make([]byte, n)
		if _, err := io.ReadFull(conn, pdu); err != nil {
			return
		}
		select {
		case lb.units <- hdr[6]:
		default:
		}

		fc := pdu[0]
		addr := binary.BigEndian.Uint16(pdu[1:3])
		qty := binary.BigEndian.Uint16(pdu[3:5])

		var resp []byte
		if uint32(addr)+uint32(qty) > uint32(lb.limit) {
			resp = []byte{fc | 0x80, 0x02}
		} else {
			resp = make([]byte, 2+2*int(qty))
			resp[0] = fc
			resp[1] = byte(2 * qty)
			for i := 0; i < int(qty); i++ {
				binary.BigEndian.PutUint16(resp[2+2*i:], addr+uint16(i)+1000)
			}
		}

		out := make([]byte, 7+len(resp))
		copy(out[0:4], hdr[0:4])
		binary.BigEndian.PutUint16(out[4:6], uint16(len(resp)+1))
		out[6] = hdr[6]
		copy(out[7:], resp)
		if _, err := conn.Write(out); err != nil {
			return
		}
	}
}

func TestDial_RequiresAddress(t *testing.T) {
	if _, err := Dial(Config{}); err == nil {
		t.Fatalf("expected error for empty address")
	}
}

func TestDial_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	if _, err := Dial(Config{Address: addr, SlaveID: 1, Timeout: time.Second}); err == nil {
		t.Fatalf("expected dial error")
	}
}

func TestClient_ReadHoldingRegisters(t *testing.T) {
	lb := startLoopback(t, 100)

	c, err := Dial(Config{Address: lb.addr(), SlaveID: 9, Timeout: time.Second})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	words, err := c.ReadHoldingRegisters(10, 3)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(words) != 3 || words[0] != 1010 || words[2] != 1012 {
		t.Fatalf("words=%v", words)
	}
	if u := <-lb.units; u != 9 {
		t.Fatalf("unit id=%d want 9", u)
	}

	c.SetSlaveID(4)
	if _, err := c.ReadHoldingRegisters(0, 1); err != nil {
		t.Fatalf("read: %v", err)
	}
	if u := <-lb.units; u != 4 {
		t.Fatalf("unit id=%d want 4", u)
	}
}

func TestClient_ExceptionResponse(t *testing.T) {
	lb := startLoopback(t, 100)

	c, err := Dial(Config{Address: lb.addr(), SlaveID: 1, Timeout: time.Second})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	_, err = c.ReadHoldingRegisters(99, 5)
	var ex *Exception
	if !errors.As(err, &ex) {
		t.Fatalf("expected *Exception, got %T %v", err, err)
	}
	if ex.ExceptionCode() != 0x02 || ex.Function != 0x83 {
		t.Fatalf("exception=%+v", ex)
	}
}

func TestUnpackRegisters(t *testing.T) {
	got := unpackRegisters([]byte{0x12, 0x34, 0xAB, 0xCD})
	if len(got) != 2 || got[0] != 0x1234 || got[1] != 0xABCD {
		t.Fatalf("got %#v", got)
	}
}
