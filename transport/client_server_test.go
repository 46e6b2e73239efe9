package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/xtreemfs/goipc/buffer"
)

// echoMessage is a minimal length-prefixed, xid-correlated wire
// message used only to exercise StreamClient/StreamServer end to end:
// [4-byte length][4-byte xid][payload].
type echoMessage struct {
	xid     uint32
	payload string
}

func encodeEcho(m echoMessage) []byte {
	out := make([]byte, 8+len(m.payload))
	binary.BigEndian.PutUint32(out[0:4], uint32(4+len(m.payload)))
	binary.BigEndian.PutUint32(out[4:8], m.xid)
	copy(out[8:], m.payload)
	return out
}

func decodeEcho(acc []byte) (*echoMessage, int, error) {
	if len(acc) < 4 {
		return nil, 0, nil
	}
	bodyLen := binary.BigEndian.Uint32(acc[0:4])
	total := 4 + int(bodyLen)
	if len(acc) < total {
		return nil, 0, nil
	}
	if bodyLen < 4 {
		return nil, 0, errors.New("echo message too short for xid")
	}
	xid := binary.BigEndian.Uint32(acc[4:8])
	payload := string(acc[8:total])
	return &echoMessage{xid: xid, payload: payload}, total, nil
}

type echoCodec struct{}

func (echoCodec) Marshal(req echoMessage) buffer.Buffers {
	return buffer.Buffers{buffer.New(encodeEcho(req))}
}
func (echoCodec) ParseResponse(acc []byte) (*echoMessage, int, error) { return decodeEcho(acc) }
func (echoCodec) XID(req echoMessage) (uint32, bool)                 { return req.xid, true }
func (echoCodec) ReplyXID(resp *echoMessage) (uint32, bool)          { return resp.xid, true }

func (echoCodec) ParseRequest(acc []byte) (*echoMessage, int, error) { return decodeEcho(acc) }
func (echoCodec) MarshalResp(resp echoMessage) buffer.Buffers {
	return buffer.Buffers{buffer.New(encodeEcho(resp))}
}

// serverCodecAdapter exists because ServerCodec's Marshal and Codec's
// Marshal would otherwise collide on the same method name within one
// type used for both roles.
type serverCodecAdapter struct{ echoCodec }

func (s serverCodecAdapter) Marshal(resp echoMessage) buffer.Buffers { return s.MarshalResp(resp) }

func TestStreamClientServerRoundTrip(t *testing.T) {
	lis, err := NewTCPListener("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	srv := NewStreamServer[echoMessage, echoMessage](serverCodecAdapter{}, func(req echoMessage, respond func(echoMessage)) {
		respond(echoMessage{xid: req.xid, payload: "echo:" + req.payload})
	}, log.New(testingWriter{t}, "", 0))
	go srv.Serve(lis)

	client := NewStreamClient[echoMessage, echoMessage](NewTCPDialer(lis.Addr().String()), echoCodec{}, 2, Timeouts{
		Connect: time.Second, Send: time.Second, Recv: time.Second,
	}, 2, log.New(testingWriter{t}, "", 0))
	defer client.Close()

	resp, err := client.Call(context.Background(), echoMessage{xid: 42, payload: "hello"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.payload != "echo:hello" {
		t.Fatalf("unexpected payload %q", resp.payload)
	}
}

func TestStreamClientConnectRetryExhaustion(t *testing.T) {
	client := NewStreamClient[echoMessage, echoMessage](NewTCPDialer("127.0.0.1:1"), echoCodec{}, 1, Timeouts{
		Connect: 30 * time.Millisecond, Send: time.Second, Recv: time.Second,
	}, 1, log.New(testingWriter{t}, "", 0))
	defer client.Close()

	_, err := client.Call(context.Background(), echoMessage{xid: 1, payload: "x"})
	if err == nil {
		t.Fatal("expected connect failure, got nil")
	}
	var te *TransportError
	if !errors.As(err, &te) || te.Phase != PhaseConnect {
		t.Fatalf("expected a PhaseConnect TransportError, got %v", err)
	}
}

func TestStreamClientRecvTimeout(t *testing.T) {
	lis, err := NewTCPListener("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	srv := NewStreamServer[echoMessage, echoMessage](serverCodecAdapter{}, func(req echoMessage, respond func(echoMessage)) {
		// Never respond, forcing the client to time out waiting.
	}, log.New(testingWriter{t}, "", 0))
	go srv.Serve(lis)

	client := NewStreamClient[echoMessage, echoMessage](NewTCPDialer(lis.Addr().String()), echoCodec{}, 1, Timeouts{
		Connect: time.Second, Send: time.Second, Recv: 30 * time.Millisecond,
	}, 1, log.New(testingWriter{t}, "", 0))
	defer client.Close()

	_, err = client.Call(context.Background(), echoMessage{xid: 7, payload: "x"})
	var timeout *Timeout
	if !errors.As(err, &timeout) || timeout.Phase != PhaseRecv {
		t.Fatalf("expected a PhaseRecv Timeout, got %v", err)
	}
}

type testingWriter struct{ t *testing.T }

func (w testingWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
