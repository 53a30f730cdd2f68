package utils

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
	nodeErr  error
)

// InitIDs configures the snowflake node. It must run before NewID when more
// than one instance writes to the same database.
func InitIDs(nodeID int64) error {
	nodeOnce.Do(func() {
		node, nodeErr = snowflake.NewNode(nodeID)
	})
	if nodeErr != nil {
		return fmt.Errorf("init snowflake node %d: %w", nodeID, nodeErr)
	}
	return nil
}

// NewID returns a new unique int64 id, falling back to node 1.
func NewID() int64 {
	if err := InitIDs(1); err != nil {
		panic(err)
	}
	return node.Generate().Int64()
}
