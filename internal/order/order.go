// Package order maintains the operator's manual task arrangement per status
// lane. The arrangement is a cache of positions, never of membership:
// authoritative membership always comes from the project data, and the
// reconciler folds it into the cached order without disturbing positions the
// operator arranged by hand.
package order

import "slices"

// Order maps a lane name to the ordered task IDs the operator arranged.
type Order map[string][]string

// Reconcile folds authoritative lane membership into the cached order. IDs
// the cache has never seen are appended in discovery order; IDs missing from
// the authoritative set are left alone here and filtered at render time.
// Must run after every authoritative refresh.
func Reconcile(cached Order, authoritative map[string][]string) Order {
	out := make(Order, len(cached)+len(authoritative))
	for lane, ids := range cached {
		out[lane] = append([]string(nil), ids...)
	}
	for lane, ids := range authoritative {
		known := make(map[string]struct{}, len(out[lane]))
		for _, id := range out[lane] {
			known[id] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := known[id]; ok {
				continue
			}
			out[lane] = append(out[lane], id)
			known[id] = struct{}{}
		}
	}
	return out
}

// Move removes taskID from lane's order and reinserts it at the index
// currently held by targetID (single-list array-move semantics). Returns the
// possibly unchanged order and whether a move happened. Missing IDs and
// self-moves are silent no-ops: a concurrently deleted task must never
// fault a drag.
func Move(cached Order, lane, taskID, targetID string) (Order, bool) {
	if taskID == targetID {
		return cached, false
	}
	ids := cached[lane]
	from := slices.Index(ids, taskID)
	to := slices.Index(ids, targetID)
	if from < 0 || to < 0 {
		return cached, false
	}

	out := make(Order, len(cached))
	for l, v := range cached {
		out[l] = append([]string(nil), v...)
	}
	moved := slices.Delete(out[lane], from, from+1)
	if to > len(moved) {
		to = len(moved)
	}
	out[lane] = slices.Insert(moved, to, taskID)
	return out, true
}

// Render joins a lane's cached order against authoritative membership:
// cached IDs that still exist come first in cached order, then any
// authoritative stragglers. Stale IDs simply drop out.
func Render(cached []string, authoritative []string) []string {
	live := make(map[string]struct{}, len(authoritative))
	for _, id := range authoritative {
		live[id] = struct{}{}
	}
	out := make([]string, 0, len(authoritative))
	seen := make(map[string]struct{}, len(authoritative))
	for _, id := range cached {
		if _, ok := live[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		out = append(out, id)
		seen[id] = struct{}{}
	}
	for _, id := range authoritative {
		if _, dup := seen[id]; dup {
			continue
		}
		out = append(out, id)
		seen[id] = struct{}{}
	}
	return out
}

// SplitByOwner restricts a lane-wide order to per-project reorder
// instructions. A drag may span tasks of several projects when no project
// filter is active; each owning project then receives only its own IDs, in
// the new relative order.
func SplitByOwner(ids []string, ownerOf map[string]string) map[string][]string {
	out := make(map[string][]string)
	for _, id := range ids {
		owner, ok := ownerOf[id]
		if !ok {
			continue
		}
		out[owner] = append(out[owner], id)
	}
	return out
}
