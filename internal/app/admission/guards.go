package admission

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// BanGuard rejects requests from banned users.
type BanGuard struct {
	roster *Roster
}

// NewBanGuard creates a ban guard over the roster.
func NewBanGuard(roster *Roster) *BanGuard {
	return &BanGuard{roster: roster}
}

func (g *BanGuard) Name() string {
	return "ban_guard"
}

func (g *BanGuard) Description() string {
	return "Rejects requests from banned users"
}

func (g *BanGuard) ReturnCodes() []string {
	return []string{"banned"}
}

func (g *BanGuard) ValidateConfig(settings map[string]any) error {
	return nil
}

func (g *BanGuard) Check(ctx context.Context, req Request) Result {
	if g.roster.IsBanned(req.Platform, req.User) {
		return Reject("banned")
	}
	return Accept()
}

// CapGuardConfig represents the configuration for CapGuard.
type CapGuardConfig struct {
	MaxRequests int `yaml:"max_requests" mapstructure:"max_requests" default:"3" validate:"gte=1"`
}

// CapGuard rejects requests once a user's lifetime count reaches the cap.
type CapGuard struct {
	ledger *Ledger
	config *CapGuardConfig
}

// NewCapGuard creates a cap guard over the ledger.
func NewCapGuard(ledger *Ledger) *CapGuard {
	return &CapGuard{ledger: ledger}
}

func (g *CapGuard) Name() string {
	return "cap_guard"
}

func (g *CapGuard) Description() string {
	return "Rejects requests beyond the per-user request cap"
}

func (g *CapGuard) ReturnCodes() []string {
	return []string{"cap_reached"}
}

func (g *CapGuard) ValidateConfig(settings map[string]any) error {
	var config CapGuardConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	g.config = &config
	return nil
}

func (g *CapGuard) Check(ctx context.Context, req Request) Result {
	limit := 3
	if g.config != nil {
		limit = g.config.MaxRequests
	}

	if r, ok := g.ledger.Get(req.Key()); ok && r.Count >= limit {
		return Reject("cap_reached")
	}
	return Accept()
}

// CooldownGuardConfig represents the configuration for CooldownGuard.
type CooldownGuardConfig struct {
	CooldownSeconds int `yaml:"cooldown_seconds" mapstructure:"cooldown_seconds" default:"30" validate:"gte=1"`
}

// CooldownGuard rejects requests made too soon after a user's previous one.
type CooldownGuard struct {
	ledger *Ledger
	config *CooldownGuardConfig
	now    func() time.Time
}

// NewCooldownGuard creates a cooldown guard over the ledger.
func NewCooldownGuard(ledger *Ledger) *CooldownGuard {
	return &CooldownGuard{ledger: ledger, now: time.Now}
}

func (g *CooldownGuard) Name() string {
	return "cooldown_guard"
}

func (g *CooldownGuard) Description() string {
	return "Rejects requests made within the per-user cooldown"
}

func (g *CooldownGuard) ReturnCodes() []string {
	return []string{"on_cooldown"}
}

func (g *CooldownGuard) ValidateConfig(settings map[string]any) error {
	var config CooldownGuardConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	g.config = &config
	return nil
}

func (g *CooldownGuard) Check(ctx context.Context, req Request) Result {
	cooldown := 30 * time.Second
	if g.config != nil {
		cooldown = time.Duration(g.config.CooldownSeconds) * time.Second
	}

	r, ok := g.ledger.Get(req.Key())
	if !ok || r.LastRequestAt.IsZero() {
		return Accept()
	}

	if g.now().Sub(r.LastRequestAt) < cooldown {
		return Reject("on_cooldown")
	}
	return Accept()
}

// decodeSettings decodes a free-form settings map into a typed config,
// applies defaults, and validates it.
func decodeSettings(settings map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}

	validate := validator.New()
	if err := validate.Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

func init() {
	Register("ban_guard", func() Guard {
		return &BanGuard{roster: NewRoster(nil, nil)}
	})
	Register("cap_guard", func() Guard {
		return &CapGuard{ledger: NewLedger()}
	})
	Register("cooldown_guard", func() Guard {
		return &CooldownGuard{ledger: NewLedger(), now: time.Now}
	})
}
