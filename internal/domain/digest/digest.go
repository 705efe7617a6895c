// Package digest reduces a snapshot to a stable fingerprint of the fields a
// viewer cares about. Two snapshots with equal meaningful content always
// hash identically, regardless of input ordering or when they were built.
package digest

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/types"
)

// matchProjection is the change-relevant subset of one match. Field order is
// fixed by the struct definition, so the serialized form is deterministic.
type matchProjection struct {
	ID            string               `json:"id"`
	Status        types.MatchStatus    `json:"status"`
	Result        types.MatchResult    `json:"result,omitempty"`
	Score         *model.Score         `json:"score,omitempty"`
	RankingPoints *model.RankingPoints `json:"rankingPoints,omitempty"`
}

type snapshotProjection struct {
	NowQueuing string            `json:"nowQueuing"`
	Matches    []matchProjection `json:"matches"`
}

// Sum computes the change digest of a snapshot. Pure function: no I/O, no
// dependence on object identity or assembly time.
func Sum(s *model.EventSnapshot) types.Digest {
	proj := snapshotProjection{
		NowQueuing: s.NowQueuing,
		Matches:    make([]matchProjection, 0, len(s.Matches)),
	}
	for _, m := range s.Matches {
		proj.Matches = append(proj.Matches, matchProjection{
			ID:            m.ID(),
			Status:        m.Status,
			Result:        m.Result,
			Score:         m.Score,
			RankingPoints: m.RankingPoints,
		})
	}
	sort.Slice(proj.Matches, func(i, j int) bool {
		return proj.Matches[i].ID < proj.Matches[j].ID
	})

	// Marshal cannot fail for this projection: plain structs, strings and ints.
	data, _ := json.Marshal(proj)
	return types.Digest(fmt.Sprintf("%016x", xxhash.Sum64(data)))
}
