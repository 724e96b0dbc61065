package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
	"github.com/yungbote/vidcourse-backend/internal/platform/neo4jdb"
)

// CourseConceptGraph mirrors which concepts each segment introduced into neo4j:
// (Course)-[:HAS_SEGMENT]->(Segment)-[:INTRODUCES]->(Concept).
// The relational store stays the source of truth; this is a read model.
type CourseConceptGraph struct {
	client     *neo4jdb.Client
	log        *logger.Logger
	schemaOnce sync.Once
}

func NewCourseConceptGraph(client *neo4jdb.Client, baseLog *logger.Logger) *CourseConceptGraph {
	return &CourseConceptGraph{client: client, log: baseLog.With("graph", "CourseConcepts")}
}

// ConceptKey normalizes a concept name into its node key.
func ConceptKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func (g *CourseConceptGraph) RecordSegment(ctx context.Context, seg *types.Segment, introduced []string) error {
	if g == nil || !g.client.Enabled() || seg == nil {
		return nil
	}
	if seg.CourseID == uuid.Nil {
		return fmt.Errorf("neo4j course concepts: missing course id")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	concepts := make([]map[string]any, 0, len(introduced))
	seen := map[string]bool{}
	for _, c := range introduced {
		key := ConceptKey(c)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		concepts = append(concepts, map[string]any{"key": key, "name": strings.TrimSpace(c)})
	}

	session := g.client.WriteSession(ctx)
	defer session.Close(ctx)

	g.schemaOnce.Do(func() { g.ensureSchema(ctx, session) })

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (c:Course {id: $course_id})
MERGE (s:Segment {id: $segment_id})
SET s.course_id = $course_id,
    s.segment_index = $segment_index,
    s.start_time = $start_time,
    s.end_time = $end_time,
    s.synced_at = $now
MERGE (c)-[:HAS_SEGMENT]->(s)
WITH s
UNWIND $concepts AS k
MERGE (n:Concept {key: k.key})
ON CREATE SET n.name = k.name, n.created_at = $now
MERGE (s)-[r:INTRODUCES]->(n)
SET r.synced_at = $now
`, map[string]any{
			"course_id":     seg.CourseID.String(),
			"segment_id":    seg.ID.String(),
			"segment_index": int64(seg.SegmentIndex),
			"start_time":    seg.StartTime,
			"end_time":      seg.EndTime,
			"concepts":      concepts,
			"now":           now,
		})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("neo4j course concepts: %w", err)
	}
	return nil
}

func (g *CourseConceptGraph) ensureSchema(ctx context.Context, session neo4j.SessionWithContext) {
	for _, q := range []string{
		`CREATE CONSTRAINT course_id_unique IF NOT EXISTS FOR (c:Course) REQUIRE c.id IS UNIQUE`,
		`CREATE CONSTRAINT segment_id_unique IF NOT EXISTS FOR (s:Segment) REQUIRE s.id IS UNIQUE`,
		`CREATE CONSTRAINT concept_key_unique IF NOT EXISTS FOR (n:Concept) REQUIRE n.key IS UNIQUE`,
	} {
		res, err := session.Run(ctx, q, nil)
		if err != nil {
			g.log.Warn("neo4j schema init failed (continuing)", "error", err)
			continue
		}
		_, _ = res.Consume(ctx)
	}
}
