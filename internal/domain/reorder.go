package domain

// MoveEvent is a drag-and-drop reorder of one sibling within its list.
// Translating pointer gestures into MoveEvents is the job of the client;
// the reducer below is the only piece the tracker owns.
type MoveEvent struct {
	ID string `json:"id"`
	To int    `json:"to"`
}

// ApplyMove is a pure reducer: it returns a new sibling order with the
// element identified by ev.ID moved to position ev.To. The input slice is
// never mutated. An unknown id returns the order unchanged; a target index
// out of range is clamped to the ends.
func ApplyMove(order []string, ev MoveEvent) []string {
	out := make([]string, 0, len(order))
	from := -1
	for i, id := range order {
		if id == ev.ID {
			from = i
			continue
		}
		out = append(out, id)
	}
	if from == -1 {
		out = append(out[:0:0], order...)
		return out
	}

	to := ev.To
	if to < 0 {
		to = 0
	}
	if to > len(out) {
		to = len(out)
	}

	out = append(out, "")
	copy(out[to+1:], out[to:])
	out[to] = ev.ID
	return out
}
