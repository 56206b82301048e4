// Package admission decides whether a chat-originated request may enter the queue.
package admission

import "context"

// Request identifies the requesting user for guard checks.
type Request struct {
	Platform string
	User     string
}

// Key returns the per-user ledger key.
func (r Request) Key() string {
	return r.Platform + ":" + r.User
}

// Result represents the result of a guard check.
type Result struct {
	Accepted bool
	Code     string // e.g. "banned", "cap_reached", "on_cooldown"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Guard is the interface for admission guards.
type Guard interface {
	// Name returns the guard name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this guard can return.
	ReturnCodes() []string
	// ValidateConfig validates the guard configuration.
	ValidateConfig(settings map[string]any) error
	// Check performs the guard check.
	Check(ctx context.Context, req Request) Result
}

// registry holds registered guard factories.
var registry = make(map[string]func() Guard)

// Register registers a guard factory.
func Register(name string, factory func() Guard) {
	registry[name] = factory
}

// GetRegistered returns all registered guard factories.
func GetRegistered() map[string]func() Guard {
	return registry
}

// Policy runs guards in sequence with a privileged bypass.
type Policy struct {
	roster *Roster
	ledger *Ledger
	guards []Guard
}

// NewPolicy creates a policy over the given roster and ledger.
func NewPolicy(roster *Roster, ledger *Ledger) *Policy {
	return &Policy{
		roster: roster,
		ledger: ledger,
		guards: make([]Guard, 0),
	}
}

// Add appends a guard to the chain.
func (p *Policy) Add(g Guard) {
	p.guards = append(p.guards, g)
}

// Guards returns all guards in the chain.
func (p *Policy) Guards() []Guard {
	return p.guards
}

// Admit runs the guard chain. Admins bypass every guard.
// Returns immediately on the first rejection.
func (p *Policy) Admit(ctx context.Context, req Request) Result {
	if p.roster.IsAdmin(req.Platform, req.User) {
		return Accept()
	}

	for _, g := range p.guards {
		result := g.Check(ctx, req)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Commit consumes the user's quota after a successful track resolution.
// Admission and resolution are bound: a failed resolution never reaches here,
// so it never costs the user anything. Admins are exempt.
func (p *Policy) Commit(req Request) {
	if p.roster.IsAdmin(req.Platform, req.User) {
		return
	}
	p.ledger.Commit(req.Key())
}
