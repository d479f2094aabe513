package model

import "time"

// News is a studio blog/news post. The news module runs on GORM, unlike the
// older repositories which use database/sql directly.
type News struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"size:255;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CoverPath string    `json:"coverPath" gorm:"size:767"`
	CreatedBy int64     `json:"createdBy" gorm:"index;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Filled at read time, not stored.
	LikeCount    int64 `json:"likeCount" gorm:"-"`
	CommentCount int64 `json:"commentCount" gorm:"-"`
	LikedByMe    bool  `json:"likedByMe" gorm:"-"`
}

func (News) TableName() string { return "news" }

// NewsLike marks a post liked by a user. One like per (user, news).
type NewsLike struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	NewsID    int64     `json:"newsId" gorm:"uniqueIndex:uq_news_like;not null"`
	UserID    int64     `json:"userId" gorm:"uniqueIndex:uq_news_like;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

func (NewsLike) TableName() string { return "news_likes" }

// NewsComment is a user comment on a post.
type NewsComment struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	NewsID    int64     `json:"newsId" gorm:"index;not null"`
	UserID    int64     `json:"userId" gorm:"index;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt"`

	Username string `json:"username" gorm:"-"`
}

func (NewsComment) TableName() string { return "news_comments" }
