package repository

import (
	"context"
	"errors"
	"taskmate/internal/model"
	"taskmate/pkg/otel"
	"taskmate/pkg/rbac"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type TeamRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTeamRepository(db *pgxpool.Pool, logger *zap.Logger) *TeamRepository {
	return &TeamRepository{db: db, logger: logger}
}

// CreateWithOwner 在同一个事务里创建团队和创建者的 owner 成员关系
func (r *TeamRepository) CreateWithOwner(ctx context.Context, userID int, name string) (*model.Team, error) {
	team := &model.Team{Name: name, CreatedBy: userID}

	err := otel.DB(ctx, "insert", "teams", func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
			if err := tx.QueryRow(ctx, `
                INSERT INTO teams (name, created_by)
                VALUES ($1, $2)
                RETURNING id, created_at
            `, name, userID).Scan(&team.ID, &team.CreatedAt); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `
                INSERT INTO team_members (team_id, user_id, role)
                VALUES ($1, $2, $3)
            `, team.ID, userID, rbac.RoleOwner)
			return err
		})
	})
	if err != nil {
		r.logger.Error("Failed to create team",
			zap.Error(err),
			zap.Int("user_id", userID),
			zap.String("name", name),
		)
		return nil, err
	}

	r.logger.Info("Team created with owner membership",
		zap.Int("team_id", team.ID),
		zap.Int("user_id", userID),
	)
	return team, nil
}

// ListMemberships 返回用户加入的所有团队
func (r *TeamRepository) ListMemberships(ctx context.Context, userID int) ([]model.Membership, error) {
	query := `
        SELECT m.team_id, t.name, m.user_id, m.role, m.joined_at
        FROM team_members m
        JOIN teams t ON t.id = m.team_id
        WHERE m.user_id = $1
        ORDER BY m.joined_at ASC`

	out := []model.Membership{}
	err := otel.DB(ctx, "select", "team_members", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var m model.Membership
			if err := rows.Scan(&m.TeamID, &m.TeamName, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
				return err
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to list memberships", zap.Error(err), zap.Int("user_id", userID))
		return nil, err
	}
	return out, nil
}

// GetRole 返回用户在团队中的角色，不是成员时返回 ErrNotFound
func (r *TeamRepository) GetRole(ctx context.Context, teamID, userID int) (string, error) {
	var role string
	err := otel.DB(ctx, "select", "team_members", func(ctx context.Context) error {
		return r.db.QueryRow(ctx,
			`SELECT role FROM team_members WHERE team_id = $1 AND user_id = $2`,
			teamID, userID,
		).Scan(&role)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return role, err
}

// AddMember 添加成员；已是成员时更新角色
func (r *TeamRepository) AddMember(ctx context.Context, teamID, userID int, role string) error {
	err := otel.DB(ctx, "insert", "team_members", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, `
            INSERT INTO team_members (team_id, user_id, role)
            VALUES ($1, $2, $3)
            ON CONFLICT (team_id, user_id) DO UPDATE SET role = EXCLUDED.role
        `, teamID, userID, role)
		return err
	})
	if err != nil {
		r.logger.Error("Failed to add team member",
			zap.Error(err),
			zap.Int("team_id", teamID),
			zap.Int("user_id", userID),
		)
		return err
	}
	r.logger.Info("Team member added",
		zap.Int("team_id", teamID),
		zap.Int("user_id", userID),
		zap.String("role", role),
	)
	return nil
}
