// Package registry implements the peer directory SPEC_FULL.md's
// DOMAIN STACK section describes: filesystem clients look up which
// peer addresses are currently alive before addressing them with a
// uri.URI, and peers keep themselves listed by heartbeating over
// HTTP. It generalizes the teacher's registry.go, which does the
// same job for one fixed kind of RPC server, into a directory of
// named roles (e.g. "mrc", "dir", "osd") each holding a set of live
// addresses.
package registry

import (
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Directory tracks which peer addresses, grouped by role, have sent a
// heartbeat within the last timeout. A zero timeout disables
// expiration (entries live forever once registered).
type Directory struct {
	timeout time.Duration
	mu      sync.Mutex
	peers   map[string]map[string]time.Time // role -> addr -> last heartbeat
}

const (
	defaultTimeout = 5 * time.Minute
	defaultPath    = "/_rpc/registry"

	headerRole = "RPC-Role"
	headerAddr = "RPC-Server"
	headerList = "RPC-Servers"
)

// NewDirectory returns a Directory that expires an address's
// registration timeout after its last heartbeat.
func NewDirectory(timeout time.Duration) *Directory {
	return &Directory{timeout: timeout, peers: make(map[string]map[string]time.Time)}
}

// DefaultDirectory is the process-wide directory HandleHTTP and
// HeartBeat operate on by default, matching the teacher's
// DefaultRegister convention.
var DefaultDirectory = NewDirectory(defaultTimeout)

// Register records addr as alive for role, refreshing its heartbeat
// timestamp if already present.
func (d *Directory) Register(role, addr string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	byAddr, ok := d.peers[role]
	if !ok {
		byAddr = make(map[string]time.Time)
		d.peers[role] = byAddr
	}
	byAddr[addr] = time.Now()
}

// Alive returns the sorted addresses registered for role whose last
// heartbeat is within the directory's timeout, pruning any entry that
// has expired.
func (d *Directory) Alive(role string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	byAddr := d.peers[role]
	var alive []string
	now := time.Now()
	for addr, last := range byAddr {
		if d.timeout == 0 || last.Add(d.timeout).After(now) {
			alive = append(alive, addr)
		} else {
			delete(byAddr, addr)
		}
	}
	sort.Strings(alive)
	return alive
}

// ServeHTTP implements the directory's wire protocol: GET returns the
// alive addresses for a role (query parameter "role") in the
// RPC-Servers response header; POST registers the sender's address
// (RPC-Server request header) under its role (RPC-Role request
// header) as a heartbeat.
func (d *Directory) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		role := req.URL.Query().Get("role")
		w.Header().Set(headerList, strings.Join(d.Alive(role), ","))
	case http.MethodPost:
		role := req.Header.Get(headerRole)
		addr := req.Header.Get(headerAddr)
		if role == "" || addr == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		d.Register(role, addr)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// HandleHTTP mounts d at path on the default ServeMux.
func (d *Directory) HandleHTTP(path string) {
	http.Handle(path, d)
}

// HandleHTTP mounts DefaultDirectory at the default registry path.
func HandleHTTP() {
	DefaultDirectory.HandleHTTP(defaultPath)
}

// HeartBeat starts a background goroutine that POSTs a heartbeat for
// (role, addr) to the directory reachable at registryURL every
// interval, stopping the first time a heartbeat fails to send.
// interval of zero uses a default just under the directory's default
// expiration, matching the teacher's "beat a little before you'd
// expire" convention.
func HeartBeat(registryURL, role, addr string, interval time.Duration) {
	if interval == 0 {
		interval = defaultTimeout - time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if err := sendHeartbeat(registryURL, role, addr); err != nil {
				return
			}
		}
	}()
}

func sendHeartbeat(registryURL, role, addr string) error {
	client := &http.Client{}
	req, err := http.NewRequest(http.MethodPost, registryURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set(headerRole, role)
	req.Header.Set(headerAddr, addr)
	if _, err := client.Do(req); err != nil {
		log.Println("registry: heartbeat failed:", err)
		return err
	}
	return nil
}
