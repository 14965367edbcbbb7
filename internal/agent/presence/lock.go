package presence

// LockController is the external collaborator that blocks interaction
// while presence demands it. This package only drives it; how the screen
// is actually locked is the console shell's concern.
type LockController interface {
	Apply(locked, limitExceeded bool)
}

// BindLockController wires a controller to the store so every state
// change is mirrored into the lock.
func BindLockController(s *Store, lc LockController) {
	s.OnChange(func(st State) {
		lc.Apply(st.IsScreenLocked, st.IsTimeLimitExceeded)
	})
}
