// Command fsrpcd is the demo filesystem-service server SPEC_FULL.md's
// DOMAIN STACK section names: it registers one VolumeService.Stat
// operation with both MessageFactory flavors this module ships
// (oncrpc.MessageFactory, jsonrpc.MessageFactory) and serves it over
// all three transports spec.md covers — ONC-RPC/TCP, JSON-RPC/HTTP
// and ONC-RPC/UDP — the way the teacher's example/server wires one
// Arith struct into one protobuf-over-TCP listener.
package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xtreemfs/goipc/cmd/internal/volumepb"
	"github.com/xtreemfs/goipc/httpmsg"
	"github.com/xtreemfs/goipc/jsonrpc"
	"github.com/xtreemfs/goipc/oncrpc"
	"github.com/xtreemfs/goipc/registry"
	"github.com/xtreemfs/goipc/transport"
)

// volProgram, volVersion, volStatProc identify VolumeService.Stat the
// way spec.md §4.5 keys an ONC-RPC procedure: (prog, vers, proc).
// 1000001 sits just above the 100000-series Sun assigns to real
// programs, matching the illustrative numbering in spec.md §8's seed
// scenarios.
const (
	volProgram  = 1000001
	volVersion  = 1
	volStatProc = 1
)

const jsonRPCPath = "/JSONRPC"

func main() {
	oncrpcAddr := flag.String("oncrpc-addr", ":9049", "address to serve ONC-RPC/TCP on")
	udpAddr := flag.String("udp-addr", ":9049", "address to serve ONC-RPC/UDP on")
	httpAddr := flag.String("http-addr", ":8080", "address to serve JSON-RPC/HTTP on")
	registryURL := flag.String("registry", "", "directory URL to heartbeat this server's addresses to (e.g. http://127.0.0.1:8081/_rpc/registry)")
	role := flag.String("role", "volume", "role name to heartbeat under")
	flag.Parse()

	logger := log.New(os.Stderr, "fsrpcd: ", log.LstdFlags)
	svc := volumepb.NewVolumeService()

	oncrpcFactory := oncrpc.NewMessageFactory()
	err := oncrpcFactory.Register(
		oncrpc.ProcKey{Prog: volProgram, Vers: volVersion, Proc: volStatProc},
		svc.StatOncRPC,
		func() oncrpc.ArgMessage { return &volumepb.StatArg{} },
		func() oncrpc.ArgMessage { return &volumepb.StatReply{} },
	)
	if err != nil {
		logger.Fatalf("registering oncrpc Volume.Stat: %v", err)
	}

	jsonFactory := jsonrpc.NewMessageFactory()
	err = jsonFactory.Register(
		"Volume.Stat",
		svc.StatJSONRPC,
		func() jsonrpc.ArgValue { return &volumepb.JSONStatArg{} },
		func() jsonrpc.ArgValue { return &volumepb.JSONStatReply{} },
	)
	if err != nil {
		logger.Fatalf("registering jsonrpc Volume.Stat: %v", err)
	}

	lis, err := serveONCRPCStream(*oncrpcAddr, oncrpcFactory, logger)
	if err != nil {
		logger.Fatalf("oncrpc/tcp listen: %v", err)
	}
	defer lis.Close()

	pc, err := serveONCRPCDatagram(*udpAddr, oncrpcFactory, logger)
	if err != nil {
		logger.Fatalf("oncrpc/udp listen: %v", err)
	}
	defer pc.Close()

	httpLis, err := serveJSONRPC(*httpAddr, jsonFactory, logger)
	if err != nil {
		logger.Fatalf("jsonrpc/http listen: %v", err)
	}
	defer httpLis.Close()

	if *registryURL != "" {
		registry.HeartBeat(*registryURL, *role+"-oncrpc", lis.Addr().String(), 0)
		registry.HeartBeat(*registryURL, *role+"-udp", pc.LocalAddr().String(), 0)
		registry.HeartBeat(*registryURL, *role+"-http", httpLis.Addr().String(), 0)
	}

	logger.Printf("serving ONC-RPC/TCP on %s, ONC-RPC/UDP on %s, JSON-RPC/HTTP on %s%s",
		lis.Addr(), pc.LocalAddr(), httpLis.Addr(), jsonRPCPath)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	<-sigc
	logger.Print("shutting down")
}

func serveONCRPCStream(addr string, factory *oncrpc.MessageFactory, logger *log.Logger) (transport.Listener, error) {
	lis, err := transport.NewTCPListener(addr)
	if err != nil {
		return nil, err
	}
	codec := oncrpc.NewServerCodec(factory)
	server := transport.NewStreamServer[oncrpc.Response, oncrpc.Response](codec,
		func(resp oncrpc.Response, respond func(oncrpc.Response)) {
			// MessageFactory.Dispatch already ran the registered
			// handler inside codec.ParseRequest; there is nothing left
			// to do here but hand the computed response back.
			respond(resp)
		}, logger)
	go func() {
		if err := server.Serve(lis); err != nil {
			logger.Printf("oncrpc/tcp: serve exited: %v", err)
		}
	}()
	return lis, nil
}

func serveONCRPCDatagram(addr string, factory *oncrpc.MessageFactory, logger *log.Logger) (net.PacketConn, error) {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}
	codec := oncrpc.NewDatagramServerCodec(factory)
	server := transport.NewUDPServer[oncrpc.Response, oncrpc.Response](codec,
		func(resp oncrpc.Response, respond func(oncrpc.Response)) { respond(resp) })
	go func() {
		if err := server.Serve(pc); err != nil {
			logger.Printf("oncrpc/udp: serve exited: %v", err)
		}
	}()
	return pc, nil
}

func serveJSONRPC(addr string, factory *jsonrpc.MessageFactory, logger *log.Logger) (transport.Listener, error) {
	lis, err := transport.NewTCPListener(addr)
	if err != nil {
		return nil, err
	}
	accessLog := httpmsg.NewAccessLog(os.Stdout)
	codec := httpmsg.NewServerCodec()
	server := transport.NewStreamServer[httpmsg.Request, httpmsg.Response](codec,
		func(req httpmsg.Request, respond func(httpmsg.Response)) {
			received := req.CreatedAt()
			handleJSONRPCRequest(&req, factory, func(resp *httpmsg.Response) {
				respond(*resp)
				accessLog.Log("-", &req, resp, received, time.Since(received))
			})
		}, logger)
	go func() {
		if err := server.Serve(lis); err != nil {
			logger.Printf("jsonrpc/http: serve exited: %v", err)
		}
	}()
	return lis, nil
}

// handleJSONRPCRequest dispatches one parsed HTTP request: only POST
// to jsonRPCPath carries a JSON-RPC call, per spec.md §6; anything
// else gets a plain HTTP error response.
func handleJSONRPCRequest(req *httpmsg.Request, factory *jsonrpc.MessageFactory, sink func(*httpmsg.Response)) {
	if req.Method != "POST" || req.RawURI != jsonRPCPath {
		resp := httpmsg.NewResponse(404, nil)
		sink(resp)
		return
	}
	jreq, err := jsonrpc.NewRequest(req, sink)
	if err != nil {
		resp := httpmsg.NewResponse(400, nil)
		sink(resp)
		return
	}
	result, derr := factory.Dispatch(jreq.Method, jreq.Params)
	if derr != nil {
		jreq.Respond(&jsonrpc.Response{Error: jsonrpc.NewString(derr.Error()), ID: jreq.ID})
		return
	}
	jreq.Respond(&jsonrpc.Response{Result: result, ID: jreq.ID})
}
