package drawing

import "sync"

// Reorder actions.
const (
	BringForward = "bring_forward"
	BringToFront = "bring_to_front"
	SendBackward = "send_backward"
	SendToBack   = "send_to_back"
)

// Store is an ordered collection of drawings keyed by id. Insertion order is
// z-order; later entries render on top. Every value handed in or out is cloned.
type Store struct {
	mu    sync.RWMutex
	items []Drawing
}

func NewStore() *Store {
	return &Store{}
}

// Add appends d. Id collisions are the caller's responsibility.
func (s *Store) Add(d Drawing) {
	s.mu.Lock()
	s.items = append(s.items, d.Clone())
	s.mu.Unlock()
}

func (s *Store) Get(id string) (Drawing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.items[i].Clone(), true
	}
	return Drawing{}, false
}

func (s *Store) List() []Drawing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Drawing, len(s.items))
	for i, d := range s.items {
		out[i] = d.Clone()
	}
	return out
}

func (s *Store) ListByType(t Type) []Drawing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Drawing
	for _, d := range s.items {
		if d.Type == t {
			out = append(out, d.Clone())
		}
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Update merges p into the entity at id. Missing ids are ignored.
func (s *Store) Update(id string, p Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.items[i] = p.Apply(s.items[i])
	return true
}

// Replace swaps the entity at d.ID wholesale, keeping its type and creation time.
func (s *Store) Replace(d Drawing) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(d.ID)
	if i < 0 || s.items[i].Type != d.Type {
		return false
	}
	next := d.Clone()
	next.CreatedAt = s.items[i].CreatedAt
	s.items[i] = next
	return true
}

func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true
}

// Clear drops every entity and returns how many were removed.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.items)
	s.items = nil
	return n
}

func (s *Store) SetVisible(id string, visible bool) bool {
	return s.Update(id, Patch{Visible: &visible})
}

// SetVisibilityByType toggles visibility for every entity of type t. If any is
// visible, all are hidden; only when all are hidden are they revealed. It
// returns the applied value and false when no entity has that type.
func (s *Store) SetVisibilityByType(t Type) (visible bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	anyVisible, found := false, false
	for _, d := range s.items {
		if d.Type == t {
			found = true
			anyVisible = anyVisible || d.Visible
		}
	}
	if !found {
		return false, false
	}
	visible = !anyVisible
	for i := range s.items {
		if s.items[i].Type == t {
			s.items[i].Visible = visible
		}
	}
	return visible, true
}

// SetLockByType is the lock counterpart: any unlocked entity locks them all;
// only when all are locked are they unlocked.
func (s *Store) SetLockByType(t Type) (locked bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	anyUnlocked, found := false, false
	for _, d := range s.items {
		if d.Type == t {
			found = true
			anyUnlocked = anyUnlocked || !d.Locked
		}
	}
	if !found {
		return false, false
	}
	locked = anyUnlocked
	for i := range s.items {
		if s.items[i].Type == t {
			s.items[i].Locked = locked
		}
	}
	return locked, true
}

// Reorder moves id within the z-order. Unknown actions and ids are ignored.
func (s *Store) Reorder(id, action string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return false
	}
	last := len(s.items) - 1
	var j int
	switch action {
	case BringForward:
		j = min(i+1, last)
	case BringToFront:
		j = last
	case SendBackward:
		j = max(i-1, 0)
	case SendToBack:
		j = 0
	default:
		return false
	}
	if i == j {
		return false
	}
	d := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.items = append(s.items[:j], append([]Drawing{d}, s.items[j:]...)...)
	return true
}

func (s *Store) index(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
