package editor

// Reduce applies cmd to a copy of s. s itself is never modified; on error
// the returned state is s unchanged.
func Reduce(s State, cmd Command, env Env) (State, error) {
	next := s.Clone()
	if err := cmd.apply(&next, env); err != nil {
		return s, err
	}
	return next, nil
}

// savedChanged reports whether the saved-form list differs by identity.
func savedChanged(prev, next State) bool {
	if len(prev.SavedForms) != len(next.SavedForms) {
		return true
	}
	for i := range prev.SavedForms {
		if prev.SavedForms[i].ID != next.SavedForms[i].ID {
			return true
		}
	}
	return false
}
