// Package volumepb is the example filesystem service SPEC_FULL.md's
// DOMAIN STACK section names: a minimal VolumeService.Stat operation
// registered once for ONC-RPC (served over both TCP and UDP) and once
// for JSON-RPC/HTTP, the way
// the teacher's example/server's Arith exercises Multiply/Divide
// through its own single protocol.
package volumepb

import (
	"fmt"

	"github.com/xtreemfs/goipc/jsonrpc"
	"github.com/xtreemfs/goipc/xdr"
)

// VolumeService backs every wire binding's Stat registration with one
// shared implementation, matching the teacher's Arith struct being
// registered once and dispatched to by reflection regardless of
// transport.
type VolumeService struct {
	// entries is a fixed in-memory directory listing; a real filesystem
	// service would consult on-disk/OSD state here instead.
	entries map[string]Stat
}

// Stat describes one path's metadata.
type Stat struct {
	SizeBytes uint64
	IsDir     bool
}

// NewVolumeService returns a service seeded with a small fixed
// listing, enough to exercise Stat end to end over all three
// transports without needing a real backing filesystem.
func NewVolumeService() *VolumeService {
	return &VolumeService{entries: map[string]Stat{
		"/":        {SizeBytes: 0, IsDir: true},
		"/README":  {SizeBytes: 482, IsDir: false},
		"/objects": {SizeBytes: 0, IsDir: true},
	}}
}

func (s *VolumeService) stat(path string) (Stat, error) {
	st, ok := s.entries[path]
	if !ok {
		return Stat{}, fmt.Errorf("volumepb: no such path %q", path)
	}
	return st, nil
}

// StatArg is the ONC-RPC argument message for Stat.
type StatArg struct{ Path string }

func (a *StatArg) DecodeXDR(d *xdr.Decoder) error {
	s, err := d.String()
	if err != nil {
		return err
	}
	a.Path = s
	return nil
}
func (a *StatArg) EncodeXDR(e *xdr.Encoder) { e.String(a.Path) }

// StatReply is the ONC-RPC reply message for Stat.
type StatReply struct {
	SizeBytes uint64
	IsDir     bool
}

func (r *StatReply) DecodeXDR(d *xdr.Decoder) error {
	size, err := d.Uint64()
	if err != nil {
		return err
	}
	isDir, err := d.Bool()
	if err != nil {
		return err
	}
	r.SizeBytes, r.IsDir = size, isDir
	return nil
}
func (r *StatReply) EncodeXDR(e *xdr.Encoder) {
	e.Uint64(r.SizeBytes)
	e.Bool(r.IsDir)
}

// StatOncRPC is the handler registered under oncrpc.ProcKey{1000001,1,1}.
func (s *VolumeService) StatOncRPC(arg *StatArg, reply *StatReply) error {
	st, err := s.stat(arg.Path)
	if err != nil {
		return err
	}
	reply.SizeBytes, reply.IsDir = st.SizeBytes, st.IsDir
	return nil
}

// JSONStatArg is the JSON-RPC argument value for "Volume.Stat".
type JSONStatArg struct{ Path string }

func (a *JSONStatArg) FromJSON(v *jsonrpc.Value) error {
	path := v.Get("path")
	if path == nil || path.Kind != jsonrpc.KindString {
		return fmt.Errorf("volumepb: Volume.Stat params must have a string \"path\"")
	}
	a.Path = path.Str
	return nil
}
func (a *JSONStatArg) ToJSON() *jsonrpc.Value {
	return jsonrpc.NewObject(jsonrpc.Member{Key: "path", Value: jsonrpc.NewString(a.Path)})
}

// JSONStatReply is the JSON-RPC reply value for "Volume.Stat".
type JSONStatReply struct {
	SizeBytes uint64
	IsDir     bool
}

func (r *JSONStatReply) FromJSON(v *jsonrpc.Value) error {
	size := v.Get("size_bytes")
	isDir := v.Get("is_dir")
	if size != nil {
		r.SizeBytes = uint64(size.Number)
	}
	r.IsDir = isDir.Bool()
	return nil
}
func (r *JSONStatReply) ToJSON() *jsonrpc.Value {
	isDir := jsonrpc.False
	if r.IsDir {
		isDir = jsonrpc.True
	}
	return jsonrpc.NewObject(
		jsonrpc.Member{Key: "size_bytes", Value: jsonrpc.NewNumber(float64(r.SizeBytes))},
		jsonrpc.Member{Key: "is_dir", Value: isDir},
	)
}

// StatJSONRPC is the handler registered under "Volume.Stat".
func (s *VolumeService) StatJSONRPC(arg *JSONStatArg, reply *JSONStatReply) error {
	st, err := s.stat(arg.Path)
	if err != nil {
		return err
	}
	reply.SizeBytes, reply.IsDir = st.SizeBytes, st.IsDir
	return nil
}
