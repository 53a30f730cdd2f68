package services

import (
	"civictrack-be/models"
)

// thread indexes the comments of one issue by id and by parent so that
// subtrees can be collected without recursion.
type thread struct {
	byID     map[int64]models.Comment
	children map[int64][]int64
	roots    []int64
}

func newThread(comments []models.Comment) thread {
	t := thread{
		byID:     make(map[int64]models.Comment, len(comments)),
		children: make(map[int64][]int64),
	}
	for _, c := range comments {
		t.byID[c.ID] = c
	}
	for _, c := range comments {
		if c.ParentID != nil {
			if _, ok := t.byID[*c.ParentID]; ok {
				t.children[*c.ParentID] = append(t.children[*c.ParentID], c.ID)
				continue
			}
		}
		// Top-level, or a reply whose parent is already gone.
		t.roots = append(t.roots, c.ID)
	}
	return t
}

// subtree returns rootID and every descendant, parents before children.
func (t thread) subtree(rootID int64) []int64 {
	if _, ok := t.byID[rootID]; !ok {
		return nil
	}
	seen := map[int64]bool{}
	var out []int64
	work := []int64{rootID}
	for len(work) > 0 {
		id := work[0]
		work = work[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		work = append(work, t.children[id]...)
	}
	return out
}

// all returns every comment, walking from the roots first. Comments caught
// in a parent cycle are appended at the end.
func (t thread) all() []int64 {
	out := make([]int64, 0, len(t.byID))
	seen := make(map[int64]bool, len(t.byID))
	for _, root := range t.roots {
		for _, id := range t.subtree(root) {
			seen[id] = true
			out = append(out, id)
		}
	}
	for id := range t.byID {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}
