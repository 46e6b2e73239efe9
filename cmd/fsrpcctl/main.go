// Command fsrpcctl is a small CLI client exercising fsrpcd's
// VolumeService.Stat operation over whichever of the three transports
// spec.md covers the caller picks — ONC-RPC/TCP, ONC-RPC/UDP or
// JSON-RPC/HTTP — the way the teacher's own example pairs a server
// with a calling client over one fixed protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/xtreemfs/goipc/buffer"
	"github.com/xtreemfs/goipc/cmd/internal/volumepb"
	"github.com/xtreemfs/goipc/httpmsg"
	"github.com/xtreemfs/goipc/jsonrpc"
	"github.com/xtreemfs/goipc/oncrpc"
	"github.com/xtreemfs/goipc/transport"
)

const (
	volProgram  = 1000001
	volVersion  = 1
	volStatProc = 1
)

const jsonRPCPath = "/JSONRPC"

func main() {
	proto := flag.String("transport", "oncrpc", "one of: oncrpc, udp, jsonrpc")
	addr := flag.String("addr", "127.0.0.1:9049", "server address (host:port)")
	path := flag.String("path", "/", "path to stat")
	timeout := flag.Duration("timeout", 10*time.Second, "per-call timeout")
	flag.Parse()

	logger := log.New(os.Stderr, "fsrpcctl: ", log.LstdFlags)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var size uint64
	var isDir bool
	var err error

	switch *proto {
	case "oncrpc":
		size, isDir, err = statOverStream(ctx, *addr, *path, logger)
	case "udp":
		size, isDir, err = statOverDatagram(ctx, *addr, *path)
	case "jsonrpc":
		size, isDir, err = statOverJSONRPC(ctx, *addr, *path, logger)
	default:
		logger.Fatalf("unknown -transport %q (want oncrpc, udp or jsonrpc)", *proto)
	}
	if err != nil {
		logger.Fatalf("stat %q over %s: %v", *path, *proto, err)
	}
	fmt.Printf("%s: size_bytes=%d is_dir=%v\n", *path, size, isDir)
}

func statOverStream(ctx context.Context, addr, path string, logger *log.Logger) (uint64, bool, error) {
	dialer := transport.NewTCPDialer(addr)
	codec := oncrpc.NewClientCodec()
	client := transport.NewStreamClient[oncrpc.Call, oncrpc.Response](dialer, codec, 1, transport.Timeouts{}, 2, logger)
	defer client.Close()

	xids := transport.NewXIDAllocator()
	call := oncrpc.Call{
		Body: oncrpc.CallBody{
			XID:  xids.Next(nil),
			Prog: volProgram,
			Vers: volVersion,
			Proc: volStatProc,
			Cred: oncrpc.Auth{Flavor: oncrpc.AuthNone},
			Verf: oncrpc.Auth{Flavor: oncrpc.AuthNone},
		},
		Arg:      &volumepb.StatArg{Path: path},
		NewReply: func() oncrpc.ArgMessage { return &volumepb.StatReply{} },
	}
	resp, err := client.Call(ctx, call)
	if err != nil {
		return 0, false, err
	}
	if resp.Err != nil {
		return 0, false, resp.Err
	}
	reply, ok := resp.Reply.(*volumepb.StatReply)
	if !ok {
		return 0, false, fmt.Errorf("unexpected reply type %T", resp.Reply)
	}
	return reply.SizeBytes, reply.IsDir, nil
}

func statOverDatagram(ctx context.Context, addr, path string) (uint64, bool, error) {
	codec := oncrpc.NewDatagramClientCodec(func() oncrpc.ArgMessage { return &volumepb.StatReply{} })
	client, err := transport.NewUDPClient[oncrpc.Call, oncrpc.Response](addr, codec, transport.Timeouts{})
	if err != nil {
		return 0, false, err
	}

	xids := transport.NewXIDAllocator()
	call := oncrpc.Call{
		Body: oncrpc.CallBody{
			XID:  xids.Next(nil),
			Prog: volProgram,
			Vers: volVersion,
			Proc: volStatProc,
			Cred: oncrpc.Auth{Flavor: oncrpc.AuthNone},
			Verf: oncrpc.Auth{Flavor: oncrpc.AuthNone},
		},
		Arg: &volumepb.StatArg{Path: path},
	}
	resp, err := client.Call(ctx, call)
	if err != nil {
		return 0, false, err
	}
	if resp.Err != nil {
		return 0, false, resp.Err
	}
	reply, ok := resp.Reply.(*volumepb.StatReply)
	if !ok {
		return 0, false, fmt.Errorf("unexpected reply type %T", resp.Reply)
	}
	return reply.SizeBytes, reply.IsDir, nil
}

func statOverJSONRPC(ctx context.Context, addr, path string, logger *log.Logger) (uint64, bool, error) {
	dialer := transport.NewTCPDialer(addr)
	codec := httpmsg.NewClientCodec()
	client := transport.NewStreamClient[httpmsg.Request, httpmsg.Response](dialer, codec, 1, transport.Timeouts{}, 2, logger)
	defer client.Close()

	params := jsonrpc.NewObject(jsonrpc.Member{Key: "path", Value: jsonrpc.NewString(path)})
	body := jsonrpc.MarshalRequest("Volume.Stat", params, jsonrpc.NewNumber(1))

	req := httpmsg.NewRequest("POST", jsonRPCPath, buffer.New(body))
	req.SetField("Host", addr)
	req.SetField("Content-Type", "application/json")
	req.SetField("Content-Length", strconv.Itoa(len(body)))

	resp, err := client.Call(ctx, *req)
	if err != nil {
		return 0, false, err
	}
	if resp.StatusCode != 200 {
		return 0, false, fmt.Errorf("jsonrpc: http status %d", resp.StatusCode)
	}
	var raw []byte
	if resp.Body() != nil {
		raw = resp.Body().Bytes()
	}
	env, err := jsonrpc.ParseEnvelope(raw)
	if err != nil {
		return 0, false, err
	}
	if env.Error != nil && !env.Error.IsNull() {
		return 0, false, fmt.Errorf("jsonrpc: %s", env.Error)
	}
	reply := &volumepb.JSONStatReply{}
	if err := reply.FromJSON(env.Result); err != nil {
		return 0, false, err
	}
	return reply.SizeBytes, reply.IsDir, nil
}
