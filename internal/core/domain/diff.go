package domain

import "fmt"

// EntityType names a canonical entity kind.
type EntityType string

const (
	EntityRikishi  EntityType = "rikishi"
	EntityBasho    EntityType = "basho"
	EntityBanzuke  EntityType = "banzuke"
	EntityBout     EntityType = "bout"
	EntityKimarite EntityType = "kimarite"
)

// EntityTypes lists entities in diff order.
var EntityTypes = []EntityType{EntityRikishi, EntityBasho, EntityBanzuke, EntityBout, EntityKimarite}

// CanonicalFile returns the JSONL file holding rows of t.
func (t EntityType) CanonicalFile() string {
	switch t {
	case EntityRikishi:
		return "rikishi.jsonl"
	case EntityBasho:
		return "basho.jsonl"
	case EntityBanzuke:
		return "banzuke_entries.jsonl"
	case EntityBout:
		return "bouts.jsonl"
	case EntityKimarite:
		return "kimarite.jsonl"
	}
	return ""
}

// Diff file names, one per change kind.
const (
	DiffAddedFile   = "added.jsonl"
	DiffChangedFile = "changed.jsonl"
	DiffRemovedFile = "removed.jsonl"
)

// DiffFiles lists every diff file.
var DiffFiles = []string{DiffAddedFile, DiffChangedFile, DiffRemovedFile}

// EntityID extracts the identity of a decoded canonical row.
// Banzuke rows use the composite basho|division|rank|side key.
func EntityID(t EntityType, row map[string]any) string {
	switch t {
	case EntityRikishi:
		return text(row["rikishiId"])
	case EntityBasho:
		return text(row["bashoId"])
	case EntityBanzuke:
		return fmt.Sprintf("%s|%s|%s|%s",
			text(row["bashoId"]), text(row["division"]), text(row["rankValue"]), text(row["side"]))
	case EntityBout:
		return text(row["boutId"])
	case EntityKimarite:
		return text(row["kimariteId"])
	}
	return ""
}

func text(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// DiffRow is one added, changed or removed entity.
type DiffRow struct {
	EntityType EntityType     `json:"entityType"`
	EntityID   string         `json:"entityId"`
	BeforeHash string         `json:"beforeHash,omitempty"`
	AfterHash  string         `json:"afterHash,omitempty"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
}

// ChangeCounts tallies diff rows for one entity.
type ChangeCounts struct {
	Added   int `json:"added"`
	Changed int `json:"changed"`
	Removed int `json:"removed"`
}

// Total returns the number of rows counted.
func (c ChangeCounts) Total() int { return c.Added + c.Changed + c.Removed }

// DiffCounts tallies diff rows per entity.
type DiffCounts map[EntityType]ChangeCounts

// NewDiffCounts returns counts with every entity present at zero.
func NewDiffCounts() DiffCounts {
	c := make(DiffCounts, len(EntityTypes))
	for _, t := range EntityTypes {
		c[t] = ChangeCounts{}
	}
	return c
}

// Total returns the number of rows across all entities.
func (c DiffCounts) Total() int {
	n := 0
	for _, cc := range c {
		n += cc.Total()
	}
	return n
}

// DiffResult is returned by a diff run.
type DiffResult struct {
	BuildID         string     `json:"buildId"`
	PreviousBuildID *string    `json:"previousBuildId"`
	Counts          DiffCounts `json:"counts"`
	DiffDir         string     `json:"diffDir"`
}
