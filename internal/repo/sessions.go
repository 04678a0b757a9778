package repo

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/ayezhov/auth-service/internal/models"
)

// UpsertSession writes the user's refresh session, replacing any existing
// row for the same user in one atomic statement. Concurrent logins for one
// user therefore end with exactly one row, holding the last committed token.
func (r *GormRepo) UpsertSession(ctx context.Context, s *models.RefreshSession) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "expires_at"}),
	}).Create(s).Error
}

func (r *GormRepo) SessionByUserID(ctx context.Context, userID string) (*models.RefreshSession, error) {
	var session models.RefreshSession
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSessionByToken removes the row holding exactly this token value.
// Deleting a token that is not stored is a no-op, not an error.
func (r *GormRepo) DeleteSessionByToken(ctx context.Context, token string) error {
	return r.DB.WithContext(ctx).Where("token = ?", token).Delete(&models.RefreshSession{}).Error
}
