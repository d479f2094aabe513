package repository

import (
	"context"
	"errors"

	"BeatStudio/model"

	"gorm.io/gorm"
)

// NewsRepository is the data access interface for studio news posts.
type NewsRepository interface {
	Create(ctx context.Context, news *model.News) error
	GetByID(ctx context.Context, id int64, viewerID int64) (*model.News, error)
	List(ctx context.Context, viewerID int64, limit, offset int) ([]*model.News, error)
	Update(ctx context.Context, news *model.News) error
	Delete(ctx context.Context, id int64) error

	Like(ctx context.Context, newsID, userID int64) error
	Unlike(ctx context.Context, newsID, userID int64) error

	AddComment(ctx context.Context, comment *model.NewsComment) error
	ListComments(ctx context.Context, newsID int64) ([]*model.NewsComment, error)
	GetComment(ctx context.Context, commentID int64) (*model.NewsComment, error)
	DeleteComment(ctx context.Context, commentID int64) error
}

type gormNewsRepository struct {
	db *gorm.DB
}

// NewGormNewsRepository creates a GORM backed news repository.
func NewGormNewsRepository(db *gorm.DB) NewsRepository {
	return &gormNewsRepository{db: db}
}

func (r *gormNewsRepository) Create(ctx context.Context, news *model.News) error {
	return r.db.WithContext(ctx).Create(news).Error
}

func (r *gormNewsRepository) GetByID(ctx context.Context, id int64, viewerID int64) (*model.News, error) {
	var news model.News
	err := r.db.WithContext(ctx).First(&news, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.fillCounters(ctx, &news, viewerID); err != nil {
		return nil, err
	}
	return &news, nil
}

func (r *gormNewsRepository) List(ctx context.Context, viewerID int64, limit, offset int) ([]*model.News, error) {
	var posts []*model.News
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	for _, news := range posts {
		if err := r.fillCounters(ctx, news, viewerID); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (r *gormNewsRepository) Update(ctx context.Context, news *model.News) error {
	return r.db.WithContext(ctx).Model(&model.News{}).
		Where("id = ?", news.ID).
		Updates(map[string]interface{}{
			"title":      news.Title,
			"content":    news.Content,
			"cover_path": news.CoverPath,
		}).Error
}

// Delete removes a post together with its likes and comments.
func (r *gormNewsRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("news_id = ?", id).Delete(&model.NewsLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("news_id = ?", id).Delete(&model.NewsComment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.News{}, id).Error
	})
}

// Like is idempotent: liking an already liked post is a no-op.
func (r *gormNewsRepository) Like(ctx context.Context, newsID, userID int64) error {
	like := &model.NewsLike{NewsID: newsID, UserID: userID}
	err := r.db.WithContext(ctx).Create(like).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

func (r *gormNewsRepository) Unlike(ctx context.Context, newsID, userID int64) error {
	return r.db.WithContext(ctx).
		Where("news_id = ? AND user_id = ?", newsID, userID).
		Delete(&model.NewsLike{}).Error
}

func (r *gormNewsRepository) AddComment(ctx context.Context, comment *model.NewsComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// ListComments returns comments oldest first, with the author's username
// joined in.
func (r *gormNewsRepository) ListComments(ctx context.Context, newsID int64) ([]*model.NewsComment, error) {
	var comments []*model.NewsComment
	err := r.db.WithContext(ctx).Model(&model.NewsComment{}).
		Select("news_comments.*, users.username AS username").
		Joins("LEFT JOIN users ON users.id = news_comments.user_id").
		Where("news_comments.news_id = ?", newsID).
		Order("news_comments.created_at ASC").
		Scan(&comments).Error
	return comments, err
}

// GetComment returns a comment by ID, or nil when it does not exist.
func (r *gormNewsRepository) GetComment(ctx context.Context, commentID int64) (*model.NewsComment, error) {
	var comment model.NewsComment
	err := r.db.WithContext(ctx).First(&comment, commentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

func (r *gormNewsRepository) DeleteComment(ctx context.Context, commentID int64) error {
	return r.db.WithContext(ctx).Delete(&model.NewsComment{}, commentID).Error
}

func (r *gormNewsRepository) fillCounters(ctx context.Context, news *model.News, viewerID int64) error {
	if err := r.db.WithContext(ctx).Model(&model.NewsLike{}).
		Where("news_id = ?", news.ID).
		Count(&news.LikeCount).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(&model.NewsComment{}).
		Where("news_id = ?", news.ID).
		Count(&news.CommentCount).Error; err != nil {
		return err
	}
	if viewerID > 0 {
		var liked int64
		if err := r.db.WithContext(ctx).Model(&model.NewsLike{}).
			Where("news_id = ? AND user_id = ?", news.ID, viewerID).
			Count(&liked).Error; err != nil {
			return err
		}
		news.LikedByMe = liked > 0
	}
	return nil
}
