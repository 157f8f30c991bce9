package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	referencePrefix  = "tx"
	maxReferenceSlug = 32
	anonymousSlug    = "anonymous"
)

// ReferenceGenerator produces transaction references of the form tx-<name>-<unix ms>-<sequence>.
// The snowflake sequence is strictly increasing per node, so identical names in the same
// millisecond still get distinct references.
type ReferenceGenerator struct {
	node *snowflake.Node
}

// NewReferenceGenerator creates a generator for the given node id (0-1023).
// Instances sharing a store must use distinct node ids.
func NewReferenceGenerator(nodeID int64) (*ReferenceGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("invalid reference node id %d: %w", nodeID, err)
	}
	return &ReferenceGenerator{node: node}, nil
}

// Generate returns a new reference for name at now.
func (g *ReferenceGenerator) Generate(name string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%d-%s", referencePrefix, slugify(name), now.UnixMilli(), g.node.Generate().Base36())
}

// slugify lowercases name and collapses everything outside [a-z0-9] into single dashes.
func slugify(name string) string {
	var b strings.Builder
	dash := false
	n := 0
	for _, r := range strings.ToLower(name) {
		if n >= maxReferenceSlug {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			n++
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
			n++
		}
	}

	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return anonymousSlug
	}
	return slug
}
