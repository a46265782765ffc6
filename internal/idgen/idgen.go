// Package idgen issues the document identifiers. Ids are snowflakes: unique
// per collector instance, roughly time ordered, safe to mint offline.
package idgen

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Generator mints document ids for one collector instance.
type Generator struct {
	node   *snowflake.Node
	lastMS atomic.Int64
}

// New builds a generator for the given instance tag (0-1023). lastKnownMS is
// the latest issue timestamp persisted from a previous run; a wall clock
// behind it means ids could repeat, so construction fails instead.
func New(instance int64, lastKnownMS int64) (*Generator, error) {
	node, err := snowflake.NewNode(instance)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node: %w", err)
	}

	if now := time.Now().UnixMilli(); now < lastKnownMS {
		return nil, fmt.Errorf("clock moved backwards: now=%d last issued=%d", now, lastKnownMS)
	}

	g := &Generator{node: node}
	g.lastMS.Store(lastKnownMS)
	return g, nil
}

// Next returns a fresh id.
func (g *Generator) Next() int64 {
	id := g.node.Generate()
	g.lastMS.Store(id.Time())
	return id.Int64()
}

// LastIssuedMS returns the timestamp of the most recent id, for periodic
// persistence.
func (g *Generator) LastIssuedMS() int64 {
	return g.lastMS.Load()
}
