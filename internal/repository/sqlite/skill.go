package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/xid"

	"github.com/sakif/skillswap/internal/apperror"
	"github.com/sakif/skillswap/internal/model"
	"github.com/sakif/skillswap/internal/repository"
)

// compile-time check that *DB implements repository.SkillRepository
var _ repository.SkillRepository = (*DB)(nil)

// maxListLimit caps a single page when the caller asks for pagination.
const maxListLimit = 100

// skillSelect is the base query every skill read starts from. The join pulls
// in the owner's display name.
func skillSelect() sq.SelectBuilder {
	return sq.Select(
		"s.id", "s.owner_id", "u.name AS owner_name", "s.name", "s.description",
		"s.category", "s.level", "s.created_at", "s.updated_at",
	).
		From("skills s").
		Join("users u ON u.id = s.owner_id")
}

// CreateSkill inserts a new skill owned by skill.OwnerID.
// Returns apperror.ErrNotFound if the owner does not exist.
func (db *DB) CreateSkill(ctx context.Context, skill *model.Skill) error {
	return db.observe(ctx, "skills.create", func(ctx context.Context) error {
		now := time.Now().UTC()
		skill.ID = xid.New().String()
		skill.CreatedAt = now
		skill.UpdatedAt = now

		query, args, err := sq.Insert("skills").
			Columns("id", "owner_id", "name", "description", "category", "level", "created_at", "updated_at").
			Values(skill.ID, skill.OwnerID, skill.Name, skill.Description, skill.Category, skill.Level, skill.CreatedAt, skill.UpdatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("sqlite: building skill insert: %w", err)
		}

		if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
			if isForeignKeyViolation(err) {
				return apperror.NotFound("user", skill.OwnerID)
			}
			return fmt.Errorf("sqlite: creating skill: %w", err)
		}
		return nil
	})
}

// GetSkillByID retrieves a skill with its owner's name.
func (db *DB) GetSkillByID(ctx context.Context, id string) (*model.Skill, error) {
	var skill model.Skill
	err := db.observe(ctx, "skills.get_by_id", func(ctx context.Context) error {
		query, args, err := skillSelect().Where(sq.Eq{"s.id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("sqlite: building skill query: %w", err)
		}
		err = db.conn.GetContext(ctx, &skill, query, args...)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("skill", id)
		}
		if err != nil {
			return fmt.Errorf("sqlite: getting skill %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &skill, nil
}

// ListSkills returns the skills matching filter.
//
// DYNAMIC QUERIES WITH SQUIRREL:
// Every filter field is optional, so the WHERE clause is assembled piece by
// piece. Each Where() call is ANDed with the previous ones and its values are
// passed as placeholders, never interpolated into the SQL string.
//
// A zero Limit returns the full result set; otherwise Limit is capped at
// maxListLimit.
func (db *DB) ListSkills(ctx context.Context, filter repository.SkillFilter) ([]model.Skill, error) {
	skills := []model.Skill{}
	err := db.observe(ctx, "skills.list", func(ctx context.Context) error {
		builder := skillSelect()

		if q := strings.TrimSpace(filter.Query); q != "" {
			pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
			builder = builder.Where(sq.Or{
				sq.Expr(unicodeLowerFunc+`(s.name) LIKE ? ESCAPE '\'`, pattern),
				sq.Expr(unicodeLowerFunc+`(s.description) LIKE ? ESCAPE '\'`, pattern),
			})
		}
		if filter.Category != "" {
			builder = builder.Where(sq.Eq{"s.category": filter.Category})
		}
		if filter.Level != "" {
			builder = builder.Where(sq.Eq{"s.level": filter.Level})
		}
		if filter.OwnerID != "" {
			builder = builder.Where(sq.Eq{"s.owner_id": filter.OwnerID})
		}
		if filter.ExcludeOwner != "" {
			builder = builder.Where(sq.NotEq{"s.owner_id": filter.ExcludeOwner})
		}

		switch filter.Sort {
		case repository.SortOldest:
			builder = builder.OrderBy("s.created_at ASC", "s.id ASC")
		case repository.SortName:
			builder = builder.OrderBy("s.name COLLATE NOCASE ASC", "s.id ASC")
		case repository.SortCategory:
			builder = builder.OrderBy("s.category ASC", "s.name COLLATE NOCASE ASC", "s.id ASC")
		default:
			builder = builder.OrderBy("s.created_at DESC", "s.id DESC")
		}

		if filter.Limit > 0 {
			limit := filter.Limit
			if limit > maxListLimit {
				limit = maxListLimit
			}
			builder = builder.Limit(uint64(limit))
			if filter.Offset > 0 {
				builder = builder.Offset(uint64(filter.Offset))
			}
		}

		query, args, err := builder.ToSql()
		if err != nil {
			return fmt.Errorf("sqlite: building skill list query: %w", err)
		}
		if err := db.conn.SelectContext(ctx, &skills, query, args...); err != nil {
			return fmt.Errorf("sqlite: listing skills: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return skills, nil
}

// DeleteSkill removes a skill and, through the foreign key, its requests.
func (db *DB) DeleteSkill(ctx context.Context, id string) error {
	return db.observe(ctx, "skills.delete", func(ctx context.Context) error {
		result, err := db.conn.ExecContext(ctx, `DELETE FROM skills WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting skill %s: %w", id, err)
		}
		return expectOneRow(result, "skill", id)
	})
}

// escapeLike escapes the LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
