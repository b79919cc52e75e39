package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/rpcombat/internal/game/character"
	"github.com/cory-johannsen/rpcombat/internal/game/effect"
)

// ErrCharacterNotFound is returned when a character lookup yields no results.
var ErrCharacterNotFound = errors.New("character not found")

// effectRecord is the JSONB form of one active effect. TurnsLeft holds the
// encoded Duration (effect.SceneSentinel for Scene).
type effectRecord struct {
	EffectID    string             `json:"effect_id"`
	Name        string             `json:"name"`
	Category    effect.Category    `json:"category"`
	TurnsLeft   int                `json:"turns_left"`
	AppliedAt   time.Time          `json:"applied_at"`
	Attribution effect.Attribution `json:"attribution"`
}

func encodeEffects(effects []effect.Active) ([]byte, error) {
	records := make([]effectRecord, 0, len(effects))
	for _, a := range effects {
		records = append(records, effectRecord{
			EffectID:    a.EffectID,
			Name:        a.Name,
			Category:    a.Category,
			TurnsLeft:   a.Duration.Encode(),
			AppliedAt:   a.AppliedAt.UTC(),
			Attribution: a.Attribution,
		})
	}
	return json.Marshal(records)
}

func decodeEffects(raw []byte) ([]effect.Active, error) {
	var records []effectRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	out := make([]effect.Active, 0, len(records))
	for _, r := range records {
		if r.TurnsLeft <= 0 {
			return nil, fmt.Errorf("effect %q has non-positive turns_left %d", r.EffectID, r.TurnsLeft)
		}
		out = append(out, effect.Active{
			EffectID:    r.EffectID,
			Name:        r.Name,
			Category:    r.Category,
			Duration:    effect.DecodeDuration(r.TurnsLeft),
			AppliedAt:   r.AppliedAt,
			Attribution: r.Attribution,
		})
	}
	return out, nil
}

const characterColumns = `id, name, physical, dexterity, mental, perception,
       max_hp, current_hp, roleplay, powers, effects, updated_at`

func scanCharacter(row pgx.Row) (character.State, error) {
	var (
		s       character.State
		effects []byte
	)
	err := row.Scan(
		&s.ID, &s.Name,
		&s.Attributes.Physical, &s.Attributes.Dexterity, &s.Attributes.Mental, &s.Attributes.Perception,
		&s.MaxHP, &s.CurrentHP, &s.Roleplay, &s.Powers, &effects, &s.UpdatedAt,
	)
	if err != nil {
		return character.State{}, err
	}
	s.Effects, err = decodeEffects(effects)
	if err != nil {
		return character.State{}, fmt.Errorf("decoding effects of %q: %w", s.ID, err)
	}
	return s, nil
}

// CharacterRepository stores character snapshots. LiveStats are never
// persisted; callers rebuild them from Effects after loading.
type CharacterRepository struct {
	db *pgxpool.Pool
}

// NewCharacterRepository creates a CharacterRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCharacterRepository(db *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{db: db}
}

// Create inserts s, assigning a fresh id when s.ID is empty.
//
// Precondition: s must satisfy character.State.Validate.
// Postcondition: Returns the stored snapshot with ID and UpdatedAt set.
func (r *CharacterRepository) Create(ctx context.Context, s character.State) (character.State, error) {
	if err := s.Validate(); err != nil {
		return character.State{}, err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	effects, err := encodeEffects(s.Effects)
	if err != nil {
		return character.State{}, fmt.Errorf("encoding effects: %w", err)
	}
	powers := s.Powers
	if powers == nil {
		powers = []string{}
	}
	out, err := scanCharacter(r.db.QueryRow(ctx, `
		INSERT INTO characters
			(id, name, physical, dexterity, mental, perception,
			 max_hp, current_hp, roleplay, powers, effects)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING `+characterColumns,
		s.ID, s.Name,
		s.Attributes.Physical, s.Attributes.Dexterity, s.Attributes.Mental, s.Attributes.Perception,
		s.MaxHP, s.CurrentHP, s.Roleplay, powers, effects,
	))
	if err != nil {
		return character.State{}, fmt.Errorf("inserting character: %w", err)
	}
	return out, nil
}

// Get retrieves a character by id.
//
// Postcondition: Returns the snapshot or ErrCharacterNotFound.
func (r *CharacterRepository) Get(ctx context.Context, id string) (character.State, error) {
	return r.get(ctx, r.db, id)
}

func (r *CharacterRepository) get(ctx context.Context, q DBTX, id string) (character.State, error) {
	s, err := scanCharacter(q.QueryRow(ctx, `SELECT `+characterColumns+` FROM characters WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return character.State{}, ErrCharacterNotFound
		}
		return character.State{}, fmt.Errorf("querying character: %w", err)
	}
	return s, nil
}

// LoadMany retrieves every listed character keyed by id. Ids with no row
// are absent from the result.
func (r *CharacterRepository) LoadMany(ctx context.Context, ids []string) (map[string]character.State, error) {
	out := make(map[string]character.State, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+characterColumns+` FROM characters WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("loading characters: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		s, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning character row: %w", err)
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}

// Save overwrites the mutable fields of s.
//
// Postcondition: Returns ErrCharacterNotFound if no row matched s.ID.
func (r *CharacterRepository) Save(ctx context.Context, s character.State) error {
	return r.save(ctx, r.db, s)
}

// SaveAll writes every state in one transaction.
//
// Postcondition: Either all states are written or none is.
func (r *CharacterRepository) SaveAll(ctx context.Context, states []character.State) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, s := range states {
			if err := r.save(ctx, tx, s); err != nil {
				return fmt.Errorf("saving %q: %w", s.ID, err)
			}
		}
		return nil
	})
}

func (r *CharacterRepository) save(ctx context.Context, q DBTX, s character.State) error {
	if err := s.Validate(); err != nil {
		return err
	}
	effects, err := encodeEffects(s.Effects)
	if err != nil {
		return fmt.Errorf("encoding effects: %w", err)
	}
	powers := s.Powers
	if powers == nil {
		powers = []string{}
	}
	tag, err := q.Exec(ctx, `
		UPDATE characters SET
			name = $2, physical = $3, dexterity = $4, mental = $5, perception = $6,
			max_hp = $7, current_hp = $8, roleplay = $9, powers = $10, effects = $11,
			updated_at = NOW()
		WHERE id = $1`,
		s.ID, s.Name,
		s.Attributes.Physical, s.Attributes.Dexterity, s.Attributes.Mental, s.Attributes.Perception,
		s.MaxHP, s.CurrentHP, s.Roleplay, powers, effects,
	)
	if err != nil {
		return fmt.Errorf("saving character: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}

// SetRoleplay toggles roleplay mode for id.
func (r *CharacterRepository) SetRoleplay(ctx context.Context, id string, on bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE characters SET roleplay = $2, updated_at = NOW() WHERE id = $1`, id, on)
	if err != nil {
		return fmt.Errorf("setting roleplay: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}
