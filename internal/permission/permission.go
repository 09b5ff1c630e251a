// Package permission resolves the per-user grant system. Grants are stored
// sparsely as key→bool maps against a static permission tree; resolution,
// cascading toggles and multi-subject aggregation all live here.
package permission

// Node is one entry of the static permission tree. Leaves have no children;
// in practice the tree is two levels deep but the algorithms recurse.
type Node struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Children []Node `json:"children,omitempty"`
}

// Grants maps permission keys to their stored boolean. Absent keys read as
// false.
type Grants map[string]bool

// AdminRole is the privileged role that bypasses stored grants for the
// built-in key set.
const AdminRole = "admin"

// bypassKeys are always granted to the privileged role regardless of any
// stored record.
var bypassKeys = map[string]struct{}{
	"management":              {},
	"management.view":         {},
	"management.edit":         {},
	"management.holidays":     {},
	"management.transactions": {},
	"management.categories":   {},
	"employees":               {},
	"employees.view":          {},
	"employees.edit":          {},
	"employees.timesheet":     {},
	"permissions.manage":      {},
}

// Toggle returns a copy of g with key set to on. Setting a key that has
// children cascades the same boolean to every descendant, overwriting
// whatever the children held. Setting a leaf touches only that leaf;
// ancestors are never derived on write.
func Toggle(tree []Node, g Grants, key string, on bool) Grants {
	out := make(Grants, len(g)+1)
	for k, v := range g {
		out[k] = v
	}
	node, ok := find(tree, key)
	if !ok {
		out[key] = on
		return out
	}
	cascade(node, out, on)
	return out
}

func cascade(n Node, g Grants, on bool) {
	g[n.Key] = on
	for _, child := range n.Children {
		cascade(child, g, on)
	}
}

func find(nodes []Node, key string) (Node, bool) {
	for _, n := range nodes {
		if n.Key == key {
			return n, true
		}
		if child, ok := find(n.Children, key); ok {
			return child, true
		}
	}
	return Node{}, false
}

// CountChecked reports how many keys under n (inclusive) are granted and the
// total countable keys. A node with children counts itself as one of its own
// total alongside each child's count; the resulting ratio intentionally
// includes the parent and must stay that way for display compatibility.
func CountChecked(n Node, g Grants) (checked, total int) {
	total = 1
	if g[n.Key] {
		checked = 1
	}
	for _, child := range n.Children {
		c, t := CountChecked(child, g)
		checked += c
		total += t
	}
	return checked, total
}

// MergeSubjects aggregates the grants of several subjects into the tri-state
// view used when bulk-editing: effective[key] holds only when every subject
// grants the key, indeterminate[key] when some but not all do.
func MergeSubjects(tree []Node, subjects []Grants) (effective, indeterminate Grants) {
	effective = make(Grants)
	indeterminate = make(Grants)
	if len(subjects) == 0 {
		return effective, indeterminate
	}
	for _, key := range Keys(tree) {
		granted := 0
		for _, g := range subjects {
			if g[key] {
				granted++
			}
		}
		effective[key] = granted == len(subjects)
		indeterminate[key] = granted > 0 && granted < len(subjects)
	}
	return effective, indeterminate
}

// Keys flattens the tree into every key it defines, parents first.
func Keys(nodes []Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Key)
		out = append(out, Keys(n.Children)...)
	}
	return out
}

// Resolve answers a single permission check. The privileged role short-
// circuits to true for the built-in bypass keys no matter what is stored;
// everyone else needs an explicit true in their grant map.
func Resolve(role string, privileged bool, grant Grants, key string) bool {
	if privileged {
		if _, ok := bypassKeys[key]; ok {
			return true
		}
	}
	if grant == nil {
		return false
	}
	return grant[key]
}

// DefaultTree is the permission tree the dashboard ships with: a management
// branch and an employees branch, each with view/edit style leaves.
func DefaultTree() []Node {
	return []Node{
		{
			Key:   "management",
			Label: "Management",
			Children: []Node{
				{Key: "management.view", Label: "View management data"},
				{Key: "management.edit", Label: "Edit management data"},
				{Key: "management.holidays", Label: "Manage holidays"},
				{Key: "management.transactions", Label: "Manage transactions"},
				{Key: "management.categories", Label: "Manage categories"},
			},
		},
		{
			Key:   "employees",
			Label: "Employees",
			Children: []Node{
				{Key: "employees.view", Label: "View employees"},
				{Key: "employees.edit", Label: "Edit employees"},
				{Key: "employees.timesheet", Label: "View timesheets"},
			},
		},
	}
}
