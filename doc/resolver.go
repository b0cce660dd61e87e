package doc

import (
	"strings"

	"github.com/google/uuid"
)

// AddressPrefix marks auto-generated run addresses in rendered output.
const AddressPrefix = "Run_"

// MintAddress returns a fresh opaque run address, never reused.
func MintAddress() string {
	return AddressPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Resolver is the bidirectional index between stable addresses and runs.
// It is maintained transactionally by every split/merge primitive; addressing
// is never derived from tree traversal.
type Resolver struct {
	byAddr map[string]*Run
	byRun  map[*Run]string
}

func NewResolver() *Resolver {
	return &Resolver{
		byAddr: make(map[string]*Run),
		byRun:  make(map[*Run]string),
	}
}

// Resolve returns the run currently bound to addr.
func (rs *Resolver) Resolve(addr string) (*Run, bool) {
	r, ok := rs.byAddr[addr]
	return r, ok
}

// Bind maps addr to run. Callers must Unbind a live address before
// rebinding it elsewhere.
func (rs *Resolver) Bind(run *Run, addr string) {
	rs.byAddr[addr] = run
	rs.byRun[run] = addr
}

// Unbind removes the binding for addr, if any.
func (rs *Resolver) Unbind(addr string) {
	if run, ok := rs.byAddr[addr]; ok {
		delete(rs.byRun, run)
		delete(rs.byAddr, addr)
	}
}

// AddressOf is the reverse lookup: the address bound to run, if any.
func (rs *Resolver) AddressOf(run *Run) (string, bool) {
	addr, ok := rs.byRun[run]
	return addr, ok
}

// Len returns the number of live bindings.
func (rs *Resolver) Len() int {
	return len(rs.byAddr)
}
