package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Relation is the kind of a directed edge in the social graph.
type Relation string

const (
	Ally  Relation = "ally"
	Enemy Relation = "enemy"
)

// Relations holds one character's outgoing ally and enemy sets.
type Relations struct {
	Allies  []string
	Enemies []string
}

// RelationshipRepository stores the directed ally/enemy graph.
type RelationshipRepository struct {
	db *pgxpool.Pool
}

// NewRelationshipRepository creates a RelationshipRepository backed by db.
func NewRelationshipRepository(db *pgxpool.Pool) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

// Set records that characterID regards otherID as rel, replacing any
// previous relation between the pair.
//
// Precondition: both ids reference existing characters and differ.
func (r *RelationshipRepository) Set(ctx context.Context, characterID, otherID string, rel Relation) error {
	if rel != Ally && rel != Enemy {
		return fmt.Errorf("unknown relation %q", rel)
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO character_relationships (character_id, other_id, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (character_id, other_id) DO UPDATE SET kind = EXCLUDED.kind`,
		characterID, otherID, string(rel),
	)
	if err != nil {
		return fmt.Errorf("setting relationship: %w", err)
	}
	return nil
}

// Clear removes any relation characterID holds toward otherID.
func (r *RelationshipRepository) Clear(ctx context.Context, characterID, otherID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM character_relationships WHERE character_id = $1 AND other_id = $2`,
		characterID, otherID,
	)
	if err != nil {
		return fmt.Errorf("clearing relationship: %w", err)
	}
	return nil
}

// Relations returns the ally and enemy sets of characterID, each sorted by id.
func (r *RelationshipRepository) Relations(ctx context.Context, characterID string) (Relations, error) {
	rows, err := r.db.Query(ctx, `
		SELECT other_id, kind FROM character_relationships
		WHERE character_id = $1 ORDER BY other_id`,
		characterID,
	)
	if err != nil {
		return Relations{}, fmt.Errorf("querying relationships: %w", err)
	}
	defer rows.Close()

	var out Relations
	for rows.Next() {
		var id, kind string
		if err := rows.Scan(&id, &kind); err != nil {
			return Relations{}, fmt.Errorf("scanning relationship row: %w", err)
		}
		switch Relation(kind) {
		case Ally:
			out.Allies = append(out.Allies, id)
		case Enemy:
			out.Enemies = append(out.Enemies, id)
		}
	}
	return out, rows.Err()
}
