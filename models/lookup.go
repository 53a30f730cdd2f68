package models

// Lookup tables are seeded at startup and are read-only through the API.

type Category struct {
	ID   int64  `bson:"_id" json:"id"`
	Name string `bson:"name" json:"name"`
}

type Status struct {
	ID   int64  `bson:"_id" json:"id"`
	Name string `bson:"name" json:"name"`
}

// Priority carries SortOrder so that "Highest" ranks above "Low" instead of
// sorting alphabetically.
type Priority struct {
	ID        int64  `bson:"_id" json:"id"`
	Name      string `bson:"name" json:"name"`
	SortOrder int    `bson:"sortOrder" json:"sortOrder"`
}

const (
	DefaultStatusName   = "OPEN"
	DefaultPriorityName = "Medium"
)

func (c Category) LookupID() int64    { return c.ID }
func (c Category) LookupName() string { return c.Name }

func (s Status) LookupID() int64    { return s.ID }
func (s Status) LookupName() string { return s.Name }

func (p Priority) LookupID() int64    { return p.ID }
func (p Priority) LookupName() string { return p.Name }
