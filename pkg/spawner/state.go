package spawner

// State is the externally persisted session state. It carries exactly one
// field, the opaque service id; the host application stores and returns
// it verbatim across restarts.
type State struct {
	ServiceID string `json:"service_id,omitempty"`
}

// GetState returns the state to persist.
func (s *Spawner) GetState() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return State{ServiceID: s.serviceID}
}

// LoadState restores previously persisted state.
func (s *Spawner) LoadState(state State) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.serviceID = state.ServiceID
}

// ClearState forgets the service id.
func (s *Spawner) ClearState() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.serviceID = ""
}
