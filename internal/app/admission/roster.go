package admission

import "sync"

// Roster holds the per-platform admin and ban sets.
// Seeded from config, mutable at runtime through admin commands.
type Roster struct {
	mu     sync.RWMutex
	admins map[string]map[string]struct{}
	banned map[string]map[string]struct{}
}

// NewRoster builds a roster from per-platform user lists.
func NewRoster(admins, banned map[string][]string) *Roster {
	r := &Roster{
		admins: make(map[string]map[string]struct{}),
		banned: make(map[string]map[string]struct{}),
	}
	for platform, users := range admins {
		for _, u := range users {
			r.add(r.admins, platform, u)
		}
	}
	for platform, users := range banned {
		for _, u := range users {
			r.add(r.banned, platform, u)
		}
	}
	return r
}

// IsAdmin reports whether the user is privileged on the platform.
func (r *Roster) IsAdmin(platform, user string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.admins[platform][user]
	return ok
}

// IsBanned reports whether the user is banned on the platform.
func (r *Roster) IsBanned(platform, user string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.banned[platform][user]
	return ok
}

// Ban adds the user to the platform's ban set.
func (r *Roster) Ban(platform, user string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(r.banned, platform, user)
}

// Unban removes the user from the platform's ban set.
func (r *Roster) Unban(platform, user string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.banned[platform]; ok {
		delete(set, user)
	}
}

func (r *Roster) add(sets map[string]map[string]struct{}, platform, user string) {
	set, ok := sets[platform]
	if !ok {
		set = make(map[string]struct{})
		sets[platform] = set
	}
	set[user] = struct{}{}
}
