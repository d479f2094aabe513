package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"BeatStudio/core/access"
	"BeatStudio/core/auth"
	"BeatStudio/logger"
	"BeatStudio/model"
	"BeatStudio/storage"
)

// optionalUserID returns the authenticated user ID when a valid bearer token
// is present, 0 otherwise. News listing is public but likedByMe needs the
// viewer.
func optionalUserID(r *http.Request) int64 {
	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0
	}
	claims, err := auth.ParseToken(parts[1])
	if err != nil {
		return 0
	}
	return claims.UserID
}

// ListNewsHandler returns news posts, newest first.
func (h *APIHandler) ListNewsHandler(w http.ResponseWriter, r *http.Request) {
	posts, err := h.newsRepo.List(r.Context(), optionalUserID(r), 50, 0)
	if err != nil {
		logger.Error("Failed to list news", logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// GetNewsHandler returns one news post.
func (h *APIHandler) GetNewsHandler(w http.ResponseWriter, r *http.Request) {
	newsID, err := pathID(r, "id")
	if err != nil {
		respondError(w, "Invalid news ID", http.StatusBadRequest)
		return
	}

	news, err := h.newsRepo.GetByID(r.Context(), newsID, optionalUserID(r))
	if err != nil {
		logger.Error("Failed to get news", logger.Int64("newsId", newsID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if news == nil {
		respondError(w, "News not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, news)
}

// CreateNewsHandler publishes a news post.
// Expected multipart form fields: title, content, coverFile (optional).
func (h *APIHandler) CreateNewsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(16 << 20); err != nil {
		respondError(w, fmt.Sprintf("Failed to parse multipart form: %v", err), http.StatusBadRequest)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	content := strings.TrimSpace(r.FormValue("content"))
	if title == "" || content == "" {
		respondError(w, "Title and content are required", http.StatusBadRequest)
		return
	}

	news := &model.News{
		Title:     title,
		Content:   content,
		CreatedBy: userID,
	}

	if coverFile, coverHeader, err := r.FormFile("coverFile"); err == nil {
		defer coverFile.Close()
		coverKey := storage.NewsCoverPrefix + fmt.Sprintf("%d_%s", userID, generateSafeFilename(title, coverHeader.Filename))
		if _, err := storage.UploadObject(r.Context(), coverKey, coverFile, coverHeader.Size, "image/jpeg"); err != nil {
			logger.Error("Failed to upload news cover", logger.ErrorField(err))
			respondError(w, "Failed to store cover file", http.StatusInternalServerError)
			return
		}
		news.CoverPath = coverKey
	}

	if err := h.newsRepo.Create(r.Context(), news); err != nil {
		logger.Error("Failed to create news", logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("News published", logger.Int64("newsId", news.ID), logger.String("title", title))
	writeJSON(w, http.StatusCreated, news)
}

// UpdateNewsHandler edits a news post.
func (h *APIHandler) UpdateNewsHandler(w http.ResponseWriter, r *http.Request) {
	newsID, err := pathID(r, "id")
	if err != nil {
		respondError(w, "Invalid news ID", http.StatusBadRequest)
		return
	}

	news, err := h.newsRepo.GetByID(r.Context(), newsID, 0)
	if err != nil {
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if news == nil {
		respondError(w, "News not found", http.StatusNotFound)
		return
	}

	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title != "" {
		news.Title = req.Title
	}
	if req.Content != "" {
		news.Content = req.Content
	}

	if err := h.newsRepo.Update(r.Context(), news); err != nil {
		logger.Error("Failed to update news", logger.Int64("newsId", newsID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, news)
}

// DeleteNewsHandler removes a post with its likes and comments.
func (h *APIHandler) DeleteNewsHandler(w http.ResponseWriter, r *http.Request) {
	newsID, err := pathID(r, "id")
	if err != nil {
		respondError(w, "Invalid news ID", http.StatusBadRequest)
		return
	}

	news, err := h.newsRepo.GetByID(r.Context(), newsID, 0)
	if err != nil {
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if news == nil {
		respondError(w, "News not found", http.StatusNotFound)
		return
	}

	if err := h.newsRepo.Delete(r.Context(), newsID); err != nil {
		logger.Error("Failed to delete news", logger.Int64("newsId", newsID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// LikeNewsHandler stars a post for the caller.
func (h *APIHandler) LikeNewsHandler(w http.ResponseWriter, r *http.Request) {
	h.mutateLike(w, r, h.newsRepo.Like)
}

// UnlikeNewsHandler removes the caller's like.
func (h *APIHandler) UnlikeNewsHandler(w http.ResponseWriter, r *http.Request) {
	h.mutateLike(w, r, h.newsRepo.Unlike)
}

func (h *APIHandler) mutateLike(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, newsID, userID int64) error) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	newsID, err := pathID(r, "id")
	if err != nil {
		respondError(w, "Invalid news ID", http.StatusBadRequest)
		return
	}

	news, err := h.newsRepo.GetByID(r.Context(), newsID, 0)
	if err != nil {
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if news == nil {
		respondError(w, "News not found", http.StatusNotFound)
		return
	}

	if err := op(r.Context(), newsID, userID); err != nil {
		logger.Error("Failed to update like", logger.Int64("newsId", newsID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ListNewsCommentsHandler returns a post's comments, oldest first.
func (h *APIHandler) ListNewsCommentsHandler(w http.ResponseWriter, r *http.Request) {
	newsID, err := pathID(r, "id")
	if err != nil {
		respondError(w, "Invalid news ID", http.StatusBadRequest)
		return
	}

	comments, err := h.newsRepo.ListComments(r.Context(), newsID)
	if err != nil {
		logger.Error("Failed to list comments", logger.Int64("newsId", newsID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// AddNewsCommentHandler posts a comment under a post.
func (h *APIHandler) AddNewsCommentHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	newsID, err := pathID(r, "id")
	if err != nil {
		respondError(w, "Invalid news ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		respondError(w, "Comment content is required", http.StatusBadRequest)
		return
	}

	news, err := h.newsRepo.GetByID(r.Context(), newsID, 0)
	if err != nil {
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if news == nil {
		respondError(w, "News not found", http.StatusNotFound)
		return
	}

	comment := &model.NewsComment{
		NewsID:  newsID,
		UserID:  userID,
		Content: strings.TrimSpace(req.Content),
	}
	if err := h.newsRepo.AddComment(r.Context(), comment); err != nil {
		logger.Error("Failed to add comment", logger.Int64("newsId", newsID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// DeleteNewsCommentHandler removes a comment. Authors delete their own;
// news managers delete any.
func (h *APIHandler) DeleteNewsCommentHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	commentID, err := pathID(r, "comment_id")
	if err != nil {
		respondError(w, "Invalid comment ID", http.StatusBadRequest)
		return
	}

	comment, err := h.newsRepo.GetComment(r.Context(), commentID)
	if err != nil {
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if comment == nil {
		respondError(w, "Comment not found", http.StatusNotFound)
		return
	}

	role, _ := GetRoleFromContext(r.Context())
	if comment.UserID != userID && !access.Can(role, access.ManageNews) {
		respondError(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := h.newsRepo.DeleteComment(r.Context(), commentID); err != nil {
		logger.Error("Failed to delete comment", logger.Int64("commentId", commentID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
