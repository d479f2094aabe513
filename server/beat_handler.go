package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"BeatStudio/core/access"
	"BeatStudio/logger"
	"BeatStudio/model"
	"BeatStudio/storage"
)

var nonAlphaNumeric = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)
var multipleSpaces = regexp.MustCompile(`\s+`)

// generateSafeFilename builds an object-key-safe file name from a title,
// keeping the original extension.
func generateSafeFilename(title, originalName string) string {
	base := strings.TrimSpace(title)
	if base == "" {
		base = "untitled_beat"
	}
	base = multipleSpaces.ReplaceAllString(base, "_")
	base = nonAlphaNumeric.ReplaceAllString(base, "")
	if len(base) > 150 {
		base = base[:150]
	}
	if base == "" {
		base = "beat"
	}
	return base + strings.ToLower(filepath.Ext(originalName))
}

// ListBeatsHandler returns the public catalog, optionally filtered by genre.
func (h *APIHandler) ListBeatsHandler(w http.ResponseWriter, r *http.Request) {
	beats, err := h.beatRepo.ListBeats(r.Context(), r.URL.Query().Get("genre"))
	if err != nil {
		logger.Error("Failed to list beats", logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, beats)
}

// GetBeatHandler returns one catalog entry.
func (h *APIHandler) GetBeatHandler(w http.ResponseWriter, r *http.Request) {
	beatID, err := pathID(r, "id")
	if err != nil {
		respondError(w, "Invalid beat ID", http.StatusBadRequest)
		return
	}

	beat, err := h.beatRepo.GetBeatByID(r.Context(), beatID)
	if err != nil {
		logger.Error("Failed to get beat", logger.Int64("beatId", beatID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if beat == nil {
		respondError(w, "Beat not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, beat)
}

// UploadBeatHandler handles beat uploads.
// Expected multipart form fields:
// - beatFile: the audio file (WAV, MP3, etc.)
// - title, genre, bpm, price
// - coverFile: cover art image (JPEG, PNG, optional)
func (h *APIHandler) UploadBeatHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil { // 64MB max memory
		respondError(w, fmt.Sprintf("Failed to parse multipart form: %v", err), http.StatusBadRequest)
		return
	}

	beatFile, beatHeader, err := r.FormFile("beatFile")
	if err != nil {
		respondError(w, "Missing 'beatFile' in form", http.StatusBadRequest)
		return
	}
	defer beatFile.Close()

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		respondError(w, "Title is required", http.StatusBadRequest)
		return
	}

	bpm, _ := strconv.Atoi(r.FormValue("bpm"))
	price, err := strconv.ParseInt(r.FormValue("price"), 10, 64)
	if err != nil || price < 0 {
		respondError(w, "Invalid price", http.StatusBadRequest)
		return
	}

	safeName := generateSafeFilename(title, beatHeader.Filename)
	audioKey := storage.BeatAudioPrefix + fmt.Sprintf("%d_%s", userID, safeName)
	if _, err := storage.UploadObject(r.Context(), audioKey, beatFile, beatHeader.Size, "audio/mpeg"); err != nil {
		logger.Error("Failed to upload beat audio", logger.ErrorField(err))
		respondError(w, "Failed to store audio file", http.StatusInternalServerError)
		return
	}

	beat := &model.Beat{
		UserID:   userID,
		Title:    title,
		Genre:    strings.TrimSpace(r.FormValue("genre")),
		BPM:      bpm,
		Price:    price,
		FilePath: audioKey,
		State:    1,
	}

	// 封面是可选的
	if coverFile, coverHeader, err := r.FormFile("coverFile"); err == nil {
		defer coverFile.Close()
		coverKey := storage.BeatCoverPrefix + fmt.Sprintf("%d_%s", userID, generateSafeFilename(title, coverHeader.Filename))
		if _, err := storage.UploadObject(r.Context(), coverKey, coverFile, coverHeader.Size, "image/jpeg"); err != nil {
			logger.Error("Failed to upload beat cover", logger.ErrorField(err))
			respondError(w, "Failed to store cover file", http.StatusInternalServerError)
			return
		}
		beat.CoverPath = coverKey
	}

	id, err := h.beatRepo.CreateBeat(r.Context(), beat)
	if err != nil {
		logger.Error("Failed to create beat", logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	beat.ID = id

	logger.Info("Beat uploaded",
		logger.Int64("beatId", id),
		logger.Int64("userId", userID),
		logger.String("title", title))
	writeJSON(w, http.StatusCreated, beat)
}

// UpdateBeatHandler edits catalog metadata. Beatmakers may edit their own
// beats, admins any beat.
func (h *APIHandler) UpdateBeatHandler(w http.ResponseWriter, r *http.Request) {
	beatID, err := pathID(r, "id")
	if err != nil {
		respondError(w, "Invalid beat ID", http.StatusBadRequest)
		return
	}

	beat, err := h.beatRepo.GetBeatByID(r.Context(), beatID)
	if err != nil {
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if beat == nil {
		respondError(w, "Beat not found", http.StatusNotFound)
		return
	}
	if !h.canEditBeat(r, beat) {
		respondError(w, "Forbidden", http.StatusForbidden)
		return
	}

	var req struct {
		Title string `json:"title"`
		Genre string `json:"genre"`
		BPM   int    `json:"bpm"`
		Price int64  `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Price < 0 {
		respondError(w, "Invalid price", http.StatusBadRequest)
		return
	}

	if req.Title != "" {
		beat.Title = req.Title
	}
	beat.Genre = req.Genre
	beat.BPM = req.BPM
	beat.Price = req.Price

	if err := h.beatRepo.UpdateBeat(r.Context(), beat); err != nil {
		logger.Error("Failed to update beat", logger.Int64("beatId", beatID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, beat)
}

// DeleteBeatHandler soft-deletes a beat. Purchases keep working; the beat
// just leaves the catalog.
func (h *APIHandler) DeleteBeatHandler(w http.ResponseWriter, r *http.Request) {
	beatID, err := pathID(r, "id")
	if err != nil {
		respondError(w, "Invalid beat ID", http.StatusBadRequest)
		return
	}

	beat, err := h.beatRepo.GetBeatByID(r.Context(), beatID)
	if err != nil {
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if beat == nil {
		respondError(w, "Beat not found", http.StatusNotFound)
		return
	}
	if !h.canEditBeat(r, beat) {
		respondError(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := h.beatRepo.SoftDeleteBeat(r.Context(), beatID); err != nil {
		logger.Error("Failed to delete beat", logger.Int64("beatId", beatID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *APIHandler) canEditBeat(r *http.Request, beat *model.Beat) bool {
	role, err := GetRoleFromContext(r.Context())
	if err != nil {
		return false
	}
	if access.Can(role, access.EditAnyBeat) {
		return true
	}
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		return false
	}
	return access.Can(role, access.EditOwnBeat) && beat.UserID == userID
}

// PlayBeatHandler counts a preview play. The hot counter lives in Redis; the
// database column is bumped alongside so the count survives a cache flush.
func (h *APIHandler) PlayBeatHandler(w http.ResponseWriter, r *http.Request) {
	beatID, err := pathID(r, "id")
	if err != nil {
		respondError(w, "Invalid beat ID", http.StatusBadRequest)
		return
	}

	count, err := h.counters.IncrPlayCount(r.Context(), beatID)
	if err != nil {
		logger.Warn("Failed to bump play counter in cache", logger.Int64("beatId", beatID), logger.ErrorField(err))
	}
	if err := h.beatRepo.AddPlayCount(r.Context(), beatID, 1); err != nil {
		logger.Warn("Failed to bump play counter in db", logger.Int64("beatId", beatID), logger.ErrorField(err))
	}
	writeJSON(w, http.StatusOK, map[string]int64{"playCount": count})
}

// DownloadBeatHandler streams the full audio file. Free beats are open to any
// authenticated user; paid beats require a completed purchase.
func (h *APIHandler) DownloadBeatHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	beatID, err := pathID(r, "id")
	if err != nil {
		respondError(w, "Invalid beat ID", http.StatusBadRequest)
		return
	}

	beat, err := h.beatRepo.GetBeatByID(r.Context(), beatID)
	if err != nil {
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if beat == nil {
		respondError(w, "Beat not found", http.StatusNotFound)
		return
	}

	if beat.Price > 0 && beat.UserID != userID {
		purchase, err := h.purchaseRepo.GetByUserAndBeat(r.Context(), userID, beatID)
		if err != nil {
			respondError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if purchase == nil || !purchase.Owned() {
			respondError(w, "Beat not purchased", http.StatusForbidden)
			return
		}
	}

	h.streamObject(w, r, beat.FilePath, "audio/mpeg")
}

// --- Favorites ---

// ListFavoritesHandler returns the caller's starred beats.
func (h *APIHandler) ListFavoritesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	beats, err := h.beatRepo.ListFavorites(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to list favorites", logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, beats)
}

// AddFavoriteHandler stars a beat. Adding twice is a no-op.
func (h *APIHandler) AddFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	h.mutateFavorite(w, r, h.beatRepo.AddFavorite)
}

// RemoveFavoriteHandler unstars a beat.
func (h *APIHandler) RemoveFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	h.mutateFavorite(w, r, h.beatRepo.RemoveFavorite)
}

func (h *APIHandler) mutateFavorite(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, beatID int64) error) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	beatID, err := pathID(r, "id")
	if err != nil {
		respondError(w, "Invalid beat ID", http.StatusBadRequest)
		return
	}

	beat, err := h.beatRepo.GetBeatByID(r.Context(), beatID)
	if err != nil {
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if beat == nil {
		respondError(w, "Beat not found", http.StatusNotFound)
		return
	}

	if err := op(r.Context(), userID, beatID); err != nil {
		logger.Error("Failed to update favorite", logger.Int64("beatId", beatID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
