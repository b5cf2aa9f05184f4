package interview

// Reconcile merges delta into current and returns the new message list.
//
// Delta entries marked Deleted remove the message with that ID. Any other
// delta entry replaces the message with the same ID by removing it and
// appending the entry, so updates move to the end. Kept entries are appended
// in delta order. An ID that is both deleted and kept in the same delta is
// removed.
//
// Reconcile never modifies its arguments. Reconciling with an empty delta
// returns a copy of current, and applying the same delta twice gives the
// same result as applying it once.
func Reconcile(current, delta []Message) []Message {
	if len(delta) == 0 {
		out := make([]Message, len(current))
		copy(out, current)
		return out
	}

	drop := make(map[string]bool, len(delta))
	deleted := make(map[string]bool)
	var keep []Message
	for _, m := range delta {
		drop[m.ID] = true
		if m.Deleted {
			deleted[m.ID] = true
			continue
		}
		keep = append(keep, m)
	}

	out := make([]Message, 0, len(current)+len(keep))
	for _, m := range current {
		if !drop[m.ID] {
			out = append(out, m)
		}
	}

	appended := make(map[string]int, len(keep))
	for _, m := range keep {
		if deleted[m.ID] {
			continue
		}
		// The last occurrence of a repeated ID wins.
		if i, ok := appended[m.ID]; ok {
			out[i] = m
			continue
		}
		appended[m.ID] = len(out)
		out = append(out, m)
	}
	return out
}

// Deletion returns a delta entry removing the message with id.
func Deletion(id string) Message {
	return Message{ID: id, Deleted: true}
}

// pruneDelta returns deletions for every model and tool message after the
// last human message. With no human message, every model and tool message
// is pruned.
func pruneDelta(messages []Message) []Message {
	var delta []Message
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role == RoleHuman {
			break
		}
		delta = append(delta, Deletion(m.ID))
	}
	return delta
}
